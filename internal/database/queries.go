package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

func (db *PgChatRepository) CreateAccount(accountParams CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, created_at, updated_at",
		accountParams.Username,
		accountParams.EmailAddress,
		accountParams.PasswordHash,
		now,
		now,
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) UpdateAccount(accountParams UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email, created_at, updated_at",
		accountParams.UserId,
		accountParams.Username,
		accountParams.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRow(
		"INSERT INTO rooms (name, external_id, description, owner_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, name, external_id, description, owner_id, created_at, updated_at",
		params.Name,
		params.ExternalId,
		params.Description,
		params.OwnerId,
		now,
		now,
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.Name,
		&room.ExternalId,
		&room.Description,
		&room.OwnerId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgChatRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, description, owner_id, created_at, updated_at FROM rooms "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Description,
		&room.OwnerId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgChatRepository) DeleteRoom(id int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var externalId string
	err = tx.QueryRow("SELECT external_id FROM rooms WHERE id = $1", id).Scan(&externalId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM messages WHERE room_id = $1", externalId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// CreateMessage persists a new message and returns it with its
// server-assigned id, sequence number and timestamps. The room id and
// content are validated before any row is written.
func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	if err := ValidateId("room id", params.RoomId); err != nil {
		return Message{}, err
	}
	if len(params.Content) > MaxContentLength {
		return Message{}, &ValidationError{Field: "content", Reason: "exceeds maximum length"}
	}

	msgType := params.Type
	if msgType == "" {
		msgType = "text"
	}

	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO messages (id, room_id, sender, content, type, time, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, seq, room_id, sender, content, type, time, created_at, updated_at",
		uuid.NewString(),
		params.RoomId,
		params.Sender,
		params.Content,
		msgType,
		params.Time,
		now,
		now,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.Seq,
		&msg.RoomId,
		&msg.Sender,
		&msg.Content,
		&msg.Type,
		&msg.Time,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)

	return msg, err
}

func (db *PgChatRepository) GetMessageById(id string) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, seq, room_id, sender, content, type, time, created_at, updated_at FROM messages "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.Seq,
		&msg.RoomId,
		&msg.Sender,
		&msg.Content,
		&msg.Type,
		&msg.Time,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)

	return msg, err
}

// ListMessagesByRoom returns the room's messages in ascending creation
// order.
func (db *PgChatRepository) ListMessagesByRoom(roomId string) ([]Message, error) {
	if err := ValidateId("room id", roomId); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(
		"SELECT id, seq, room_id, sender, content, type, time, created_at, updated_at FROM messages "+
			"WHERE room_id = $1 ORDER BY seq ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(
			&msg.Id,
			&msg.Seq,
			&msg.RoomId,
			&msg.Sender,
			&msg.Content,
			&msg.Type,
			&msg.Time,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	return messages, err
}

// DeleteMessage removes the message with the given id. Deleting an unknown
// id returns sql.ErrNoRows.
func (db *PgChatRepository) DeleteMessage(id string) error {
	res, err := db.conn.Exec("DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}
