package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    url TEXT NOT NULL,
    source_id TEXT NOT NULL,
    source_name TEXT NOT NULL DEFAULT '',
    region TEXT NOT NULL DEFAULT '',
    score INTEGER NOT NULL DEFAULT 0,
    matched_terms TEXT NOT NULL DEFAULT '{}',
    excerpt TEXT NOT NULL DEFAULT '',
    deadline TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '',
    eligibility TEXT NOT NULL DEFAULT '',
    discovered_at TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'new'
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
CREATE INDEX IF NOT EXISTS idx_candidates_score ON candidates(score DESC);

CREATE TABLE IF NOT EXISTS run_reports (
    id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    started_at TEXT NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_reports_started ON run_reports(started_at);

CREATE TABLE IF NOT EXISTS tracked_items (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL,
    content_hash TEXT NOT NULL DEFAULT '',
    deadline TEXT NOT NULL DEFAULT '',
    amount TEXT NOT NULL DEFAULT '',
    closed INTEGER NOT NULL DEFAULT 0,
    last_checked TEXT NOT NULL DEFAULT '',
    last_changed TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open'
);

CREATE TABLE IF NOT EXISTS change_records (
    id TEXT PRIMARY KEY,
    item_id TEXT NOT NULL,
    field TEXT NOT NULL,
    old_value TEXT NOT NULL DEFAULT '',
    new_value TEXT NOT NULL DEFAULT '',
    detected_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_change_records_item ON change_records(item_id, detected_at);
`
