package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id               TEXT PRIMARY KEY,
    owner_id         TEXT NOT NULL,
    title            TEXT NOT NULL DEFAULT '',
    client_name      TEXT NOT NULL DEFAULT '',
    client_company   TEXT NOT NULL DEFAULT '',
    rep_name         TEXT NOT NULL DEFAULT '',
    channel          TEXT NOT NULL DEFAULT '',
    started_at       INTEGER,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    notes            TEXT NOT NULL DEFAULT '',
    created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions (owner_id);

CREATE TABLE IF NOT EXISTS transcript_segments (
    session_id TEXT    NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    offset_ms  INTEGER NOT NULL DEFAULT 0,
    speaker    TEXT    NOT NULL DEFAULT '',
    text       TEXT    NOT NULL,
    PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS session_insights (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
    kind       TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS report_generations (
    session_id TEXT    PRIMARY KEY REFERENCES sessions (id) ON DELETE CASCADE,
    owner_id   TEXT    NOT NULL,
    status     TEXT    NOT NULL CHECK (status IN ('queued', 'running', 'ready', 'failed')),
    attempts   INTEGER NOT NULL DEFAULT 0 CHECK (attempts >= 0),
    report     TEXT,
    last_error TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    CHECK ((status = 'ready') = (report IS NOT NULL)),
    CHECK ((status = 'failed') = (last_error IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_report_generations_status ON report_generations (status, updated_at);
`
