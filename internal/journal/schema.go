package journal

const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    op TEXT NOT NULL,
    path TEXT NOT NULL,
    uuid TEXT,
    dev_name TEXT,
    detail TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_path ON operations(path);
CREATE INDEX IF NOT EXISTS idx_operations_timestamp ON operations(timestamp);
`
