// Package ledger talks to the public ledger's gateway: a GraphQL endpoint
// for release metadata and a plain GET endpoint for content bytes. The
// client knows nothing about trust or version policy beyond discarding
// entries that do not parse into a complete, strictly-valid descriptor.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loomworks/loom/internal/semver"
)

const (
	// DefaultGateway is the public gateway queried when no override is set.
	DefaultGateway = "https://arweave.net"

	// appNameTag identifies loom release transactions on the ledger.
	appNameTag = "loom"
	// packageTypeTag marks a transaction as a package artifact.
	packageTypeTag = "package"

	// lookbackWindow bounds how many newest-first candidates are scanned
	// before giving up on finding a valid descriptor.
	lookbackWindow = 10

	metadataTimeout = 10 * time.Second
	downloadTimeout = 60 * time.Second

	// maxAttempts is the total attempt budget per operation.
	maxAttempts = 3
)

// retryBase is the initial backoff interval (doubles per attempt).
// Tests shorten it.
var retryBase = time.Second

var sha256Pattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Descriptor is the ledger's representation of one publishable release.
type Descriptor struct {
	ContentID   string
	Version     string
	Publisher   string
	SHA256      string
	PublishedAt time.Time // approximate; zero when the block is unconfirmed
}

// Client issues read queries and content downloads against one gateway.
// Behavior is identical regardless of which gateway endpoint is configured.
type Client struct {
	gateway string
	http    *http.Client
}

// NewClient creates a Client for the given gateway base URL. An empty
// gateway selects the default public endpoint.
func NewClient(gateway string) *Client {
	if gateway == "" {
		gateway = DefaultGateway
	}
	return &Client{
		gateway: gateway,
		http:    &http.Client{},
	}
}

// graphql wire types

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		Transactions struct {
			Edges []struct {
				Node txNode `json:"node"`
			} `json:"edges"`
		} `json:"transactions"`
	} `json:"data"`
}

type txNode struct {
	ID    string `json:"id"`
	Owner struct {
		Address string `json:"address"`
	} `json:"owner"`
	Tags []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"tags"`
	Block *struct {
		Timestamp int64 `json:"timestamp"`
	} `json:"block"`
}

const releaseQuery = `query($owners: [String!]!, $tags: [TagFilter!]!, $first: Int!) {
  transactions(owners: $owners, tags: $tags, first: $first, sort: HEIGHT_DESC) {
    edges {
      node {
        id
        owner { address }
        tags { name value }
        block { timestamp }
      }
    }
  }
}`

// QueryLatestRelease returns the newest release descriptor published by
// publisher, or (nil, nil) when no valid candidate exists. Entries with
// missing fields or a non-strict version are skipped with a warning, up to
// the bounded lookback window. Network failures after retries surface as a
// typed *NetError.
func (c *Client) QueryLatestRelease(ctx context.Context, publisher string) (*Descriptor, error) {
	reqBody, err := json.Marshal(gqlRequest{
		Query: releaseQuery,
		Variables: map[string]any{
			"owners": []string{publisher},
			"tags": []map[string]any{
				{"name": "App-Name", "values": []string{appNameTag}},
				{"name": "Type", "values": []string{packageTypeTag}},
			},
			"first": lookbackWindow,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger query: %w", err)
	}

	var parsed gqlResponse
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.gateway+"/graphql", bytes.NewReader(reqBody))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
		}

		parsed = gqlResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("failed to parse gateway response: %w", err)
		}
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		return nil, &NetError{Op: "query", Err: err}
	}

	for _, edge := range parsed.Data.Transactions.Edges {
		desc, err := parseDescriptor(edge.Node)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping ledger entry %s: %v\n", edge.Node.ID, err)
			continue
		}
		return desc, nil
	}
	return nil, nil
}

// Download fetches the raw artifact bytes for a content identifier. The
// optional progress callback receives (bytesRead, totalBytes); totalBytes is
// -1 when the gateway does not report a length.
func (c *Client) Download(ctx context.Context, contentID string, progress func(read, total int64)) ([]byte, error) {
	var body []byte
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.gateway+"/"+contentID, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
		}

		body, err = readAll(resp.Body, resp.ContentLength, progress)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		return nil, &NetError{Op: "download", Err: err}
	}
	return body, nil
}

// retry runs op up to maxAttempts times with exponential backoff, doubling
// from retryBase.
func (c *Client) retry(ctx context.Context, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryBase
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, maxAttempts-1), ctx))
}

func readAll(r io.Reader, total int64, progress func(read, total int64)) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 32*1024)
	var read int64
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			read += int64(n)
			if progress != nil {
				progress(read, total)
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseDescriptor converts a transaction node into a Descriptor, rejecting
// incomplete or loosely-versioned entries.
func parseDescriptor(node txNode) (*Descriptor, error) {
	tags := make(map[string]string, len(node.Tags))
	for _, tag := range node.Tags {
		tags[tag.Name] = tag.Value
	}

	if node.ID == "" {
		return nil, fmt.Errorf("missing transaction id")
	}
	if node.Owner.Address == "" {
		return nil, fmt.Errorf("missing owner address")
	}

	version := tags["App-Version"]
	if version == "" {
		return nil, fmt.Errorf("missing App-Version tag")
	}
	if !semver.IsValid(version) {
		return nil, fmt.Errorf("invalid version %q", version)
	}

	digest := tags["SHA-256"]
	if !sha256Pattern.MatchString(digest) {
		return nil, fmt.Errorf("missing or malformed SHA-256 tag")
	}

	desc := &Descriptor{
		ContentID: node.ID,
		Version:   version,
		Publisher: node.Owner.Address,
		SHA256:    digest,
	}
	if node.Block != nil {
		desc.PublishedAt = time.Unix(node.Block.Timestamp, 0).UTC()
	}
	return desc, nil
}
