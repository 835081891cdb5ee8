package repository

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS races (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS checkpoint_reads (
		race_id   TEXT NOT NULL,
		reader    TEXT NOT NULL,
		tag_id    TEXT NOT NULL,
		read_date TEXT NOT NULL,
		read_time TEXT NOT NULL,
		PRIMARY KEY (race_id, reader, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		race_id    TEXT NOT NULL,
		tag_id     TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name  TEXT NOT NULL,
		age        INTEGER NOT NULL DEFAULT -1,
		gender     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (race_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS corrections (
		id         TEXT PRIMARY KEY,
		race_id    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		tag_id     TEXT NOT NULL,
		detail     TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS corrections_race_idx ON corrections (race_id, applied_at)`,
}
