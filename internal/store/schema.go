package store

const schema = `
CREATE TABLE IF NOT EXISTS backups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    version TEXT NOT NULL,
    mechanism TEXT NOT NULL,
    artifact_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS update_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TIMESTAMP NOT NULL,
    outcome TEXT NOT NULL,
    from_version TEXT,
    to_version TEXT,
    content_id TEXT,
    detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_backups_version ON backups(version);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON update_events(timestamp);
`
