package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS budgets (
    fiscal_year          TEXT PRIMARY KEY,
    start_date           TEXT NOT NULL,
    end_date             TEXT NOT NULL,
    total_allocated      INTEGER NOT NULL,
    salary_allocated     INTEGER NOT NULL,
    salary_spent         INTEGER NOT NULL DEFAULT 0,
    operational_allocated INTEGER NOT NULL,
    status               TEXT NOT NULL DEFAULT 'draft',
    created_at           TEXT NOT NULL,
    activated_at         TEXT,
    closed_at            TEXT
);

CREATE TABLE IF NOT EXISTS category_pools (
    fiscal_year          TEXT NOT NULL REFERENCES budgets(fiscal_year) ON DELETE CASCADE,
    category             TEXT NOT NULL,
    allocated            INTEGER NOT NULL DEFAULT 0,
    spent                INTEGER NOT NULL DEFAULT 0,
    pending              INTEGER NOT NULL DEFAULT 0,
    grievance_count      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (fiscal_year, category)
);

CREATE TABLE IF NOT EXISTS engineers (
    fiscal_year          TEXT NOT NULL REFERENCES budgets(fiscal_year) ON DELETE CASCADE,
    engineer_ref         TEXT NOT NULL,
    monthly_salary       INTEGER NOT NULL,
    joined_date          TEXT NOT NULL,
    active               INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (fiscal_year, engineer_ref)
);

CREATE TABLE IF NOT EXISTS payroll_receipts (
    year                 INTEGER NOT NULL,
    month                INTEGER NOT NULL,
    fiscal_year          TEXT NOT NULL REFERENCES budgets(fiscal_year),
    total_amount         INTEGER NOT NULL,
    engineer_count       INTEGER NOT NULL,
    processed_at         TEXT NOT NULL,
    PRIMARY KEY (year, month)
);

CREATE TABLE IF NOT EXISTS bindings (
    id                   TEXT PRIMARY KEY,
    grievance_ref        TEXT NOT NULL UNIQUE,
    fiscal_year          TEXT NOT NULL REFERENCES budgets(fiscal_year),
    category             TEXT NOT NULL,
    reserved_amount      INTEGER NOT NULL,
    spent_amount         INTEGER NOT NULL DEFAULT 0,
    state                TEXT NOT NULL DEFAULT 'reserved',
    reviewable           INTEGER NOT NULL DEFAULT 0,
    admin_notes          TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL,
    settled_at           TEXT
);

CREATE TABLE IF NOT EXISTS binding_expenses (
    binding_id           TEXT NOT NULL REFERENCES bindings(id) ON DELETE CASCADE,
    seq                  INTEGER NOT NULL,
    description          TEXT NOT NULL,
    amount               INTEGER NOT NULL,
    logged_at            TEXT NOT NULL,
    PRIMARY KEY (binding_id, seq)
);

CREATE TABLE IF NOT EXISTS binding_bills (
    binding_id           TEXT NOT NULL REFERENCES bindings(id) ON DELETE CASCADE,
    bill_ref             TEXT NOT NULL,
    PRIMARY KEY (binding_id, bill_ref)
);

CREATE TABLE IF NOT EXISTS adjustments (
    id                   TEXT PRIMARY KEY,
    binding_id           TEXT NOT NULL REFERENCES bindings(id),
    grievance_ref        TEXT NOT NULL,
    category             TEXT NOT NULL,
    amount               INTEGER NOT NULL,
    note                 TEXT NOT NULL,
    created_at           TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_budgets_single_active
    ON budgets(status) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_bindings_year_state ON bindings(fiscal_year, state);
CREATE INDEX IF NOT EXISTS idx_bindings_settled ON bindings(settled_at);
`
