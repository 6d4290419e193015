// Package database implements the persistent store over Postgres.
//
// Expected schema:
//
//	CREATE TABLE accounts (
//	    id            SERIAL PRIMARY KEY,
//	    username      TEXT NOT NULL,
//	    email         TEXT NOT NULL UNIQUE,
//	    password_hash TEXT NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE rooms (
//	    id          SERIAL PRIMARY KEY,
//	    external_id TEXT NOT NULL UNIQUE,
//	    name        TEXT NOT NULL,
//	    description TEXT NOT NULL DEFAULT '',
//	    owner_id    INTEGER NOT NULL REFERENCES accounts (id),
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE messages (
//	    id         TEXT PRIMARY KEY,
//	    seq        BIGSERIAL,
//	    room_id    TEXT NOT NULL,
//	    sender     TEXT NOT NULL,
//	    content    TEXT NOT NULL,
//	    type       TEXT NOT NULL DEFAULT 'text',
//	    time       TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX messages_room_seq_idx ON messages (room_id, seq);
package database

import (
	"database/sql"
)

type PgChatRepository struct {
	conn *sql.DB
}

func NewPgChatRepository(dsn string) (*PgChatRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgChatRepository{conn: db}, nil
}

func (db *PgChatRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgChatRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
