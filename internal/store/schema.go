package store

// maxGenerations is how many generation records are retained.
const maxGenerations = 30

const schemaSQL = `
CREATE TABLE IF NOT EXISTS processed_sessions (
    seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id           TEXT NOT NULL UNIQUE,
    first_seen_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS generations (
    seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
    id                   TEXT NOT NULL UNIQUE,
    session_id           TEXT NOT NULL,
    generated_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fetches (
    id                   INTEGER PRIMARY KEY CHECK (id = 1),
    fetched_at           TEXT NOT NULL,
    days                 INTEGER NOT NULL,
    payload              BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generations_session ON generations(session_id);
`
