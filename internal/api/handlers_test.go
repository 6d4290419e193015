package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/config"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/database"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/pubsub"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/server"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/stats"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/testutil"
	"github.com/kishan-kumar-s-d-444/globalstore-chat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestApp wires a ChatApp to a real chat server over a local bus so the
// REST handlers exercise the same fan-out path production uses.
func newTestApp(t *testing.T, repo database.ChatRepository) *ChatApp {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return(nil).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	logger := testutil.TestLogger(t)
	cs, err := server.NewChatServer(logger, repo, pubsub.NewLocalBus(), su)
	if err != nil {
		t.Fatalf("failed to create test chat server: %v", err)
	}

	cfg := &config.Config{
		ServerAddr:     "localhost:0",
		DatabaseDSN:    "dsn",
		SigningKey:     []byte("test-signing-key"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	return NewChatApp(http.NewServeMux(), logger, cs, repo, cfg)
}

// findCookie is a helper function to find a cookie by name in the response recorder.
// It returns the cookie if found, or nil if not found.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}

func TestCreateAccountHandler(t *testing.T) {
	expectedUser := database.User{
		Id:           1,
		Username:     "newuser",
		EmailAddress: "newuser@example.com",
		PasswordHash: "hashedpassword",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	tcases := []struct {
		name         string
		body         any
		mockUser     *database.User
		mockErr      error
		expectedCode int
	}{
		{
			name: "successfully creates a new account",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			mockUser:     &expectedUser,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "malformed body",
			body:         "not json",
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "missing fields",
			body: RegisterRequest{
				Username: "newuser",
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "repository failure",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			mockUser:     &database.User{},
			mockErr:      errors.New("db error"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.mockUser != nil {
				mockRepo.On("CreateAccount", mock.MatchedBy(func(p database.CreateAccountParams) bool {
					return p.Username == expectedUser.Username &&
						p.EmailAddress == expectedUser.EmailAddress &&
						p.PasswordHash != ""
				})).Return(*tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)

			var buf bytes.Buffer
			switch b := tc.body.(type) {
			case string:
				buf.WriteString(b)
			default:
				assert.NoError(t, json.NewEncoder(&buf).Encode(b), "expected request body to encode")
			}

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
			app.createAccount(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "expected status code to match")
			if tc.expectedCode == http.StatusCreated {
				var u types.User
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&u), "expected user response to decode")
				assert.Equal(t, expectedUser.Id, u.Id, "expected user id to match")
				assert.Equal(t, expectedUser.Username, u.Username, "expected username to match")
				assert.Equal(t, expectedUser.EmailAddress, u.EmailAddress, "expected email to match")
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	pwdHash, err := hashPassword("password")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	dbUser := database.User{
		Id:           1,
		Username:     "testuser",
		EmailAddress: "testuser@example.com",
		PasswordHash: pwdHash,
	}

	t.Run("successful login sets session cookie", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", dbUser.EmailAddress).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		var buf bytes.Buffer
		assert.NoError(t, json.NewEncoder(&buf).Encode(LoginRequest{
			Email:    dbUser.EmailAddress,
			Password: "password",
		}), "expected request body to encode")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", &buf)
		app.login(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		cookie := findCookie(rr, tokenCookieKey)
		require.NotNil(t, cookie, "expected session cookie to be set")
		assert.NotEmpty(t, cookie.Value, "expected session cookie to carry a token")

		userId, err := app.extractUserIdFromToken(cookie.Value)
		assert.NoError(t, err, "expected session token to verify")
		assert.Equal(t, dbUser.Id, userId, "expected token to identify the user")
	})

	t.Run("unknown email", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", "nobody@example.com").Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		var buf bytes.Buffer
		assert.NoError(t, json.NewEncoder(&buf).Encode(LoginRequest{
			Email:    "nobody@example.com",
			Password: "password",
		}), "expected request body to encode")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", &buf)
		app.login(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected status code to be 404")
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountByEmail", dbUser.EmailAddress).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		var buf bytes.Buffer
		assert.NoError(t, json.NewEncoder(&buf).Encode(LoginRequest{
			Email:    dbUser.EmailAddress,
			Password: "wrong",
		}), "expected request body to encode")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", &buf)
		app.login(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected status code to be 401")
		assert.Nil(t, findCookie(rr, tokenCookieKey), "expected no session cookie")
	})
}

func TestCreateRoomHandler(t *testing.T) {
	t.Run("successfully creates a room", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		expectedRoom := database.Room{
			Id:         1,
			ExternalId: "short-id",
			Name:       "general",
			OwnerId:    7,
		}
		mockRepo.On("CreateRoom", database.CreateRoomParams{
			Name:       "general",
			OwnerId:    7,
			ExternalId: "short-id",
		}).Return(expectedRoom, nil).Once()

		app := newTestApp(t, mockRepo)
		app.generateShortId = func() (string, error) { return "short-id", nil }

		var buf bytes.Buffer
		assert.NoError(t, json.NewEncoder(&buf).Encode(CreateRoomRequest{Name: "general"}), "expected request body to encode")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", &buf)
		req = req.WithContext(WithUserId(req.Context(), 7))
		app.createRoom(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected status code to be 201")

		var room types.Room
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&room), "expected room response to decode")
		assert.Equal(t, expectedRoom.ExternalId, room.ExternalId, "expected external id to match")
		assert.Equal(t, expectedRoom.Name, room.Name, "expected name to match")
	})

	t.Run("short id generation fails", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)
		app.generateShortId = func() (string, error) { return "", fmt.Errorf("exhausted") }

		var buf bytes.Buffer
		assert.NoError(t, json.NewEncoder(&buf).Encode(CreateRoomRequest{Name: "general"}), "expected request body to encode")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", &buf)
		req = req.WithContext(WithUserId(req.Context(), 7))
		app.createRoom(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
	})
}

func TestDeleteRoomHandler(t *testing.T) {
	room := database.Room{Id: 3, ExternalId: "abc", OwnerId: 7}

	t.Run("owner deletes room", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc").Return(room, nil).Once()
		mockRepo.On("DeleteRoom", room.Id).Return(nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/rooms?id=abc", nil)
		req = req.WithContext(WithUserId(req.Context(), 7))
		app.deleteRoom(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code, "expected status code to be 204")
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc").Return(room, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/rooms?id=abc", nil)
		req = req.WithContext(WithUserId(req.Context(), 99))
		app.deleteRoom(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code, "expected status code to be 403")
		mockRepo.AssertNotCalled(t, "DeleteRoom", mock.Anything)
	})
}

func TestGetMessagesHandler(t *testing.T) {
	t.Run("malformed room id", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=bad%20id", nil)
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
		mockRepo.AssertNotCalled(t, "ListMessagesByRoom", mock.Anything)
	})

	t.Run("missing room id", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})

	t.Run("returns messages in creation order", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		stored := []database.Message{
			{Id: "m1", Seq: 1, RoomId: "room-r", Sender: "alice", Content: "first", Type: "text"},
			{Id: "m2", Seq: 2, RoomId: "room-r", Sender: "bob", Content: "second", Type: "text"},
		}
		mockRepo.On("ListMessagesByRoom", "room-r").Return(stored, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=room-r", nil)
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		var messages []types.Message
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&messages), "expected message list to decode")
		assert.Len(t, messages, 2, "expected both messages")
		assert.Equal(t, "m1", messages[0].Id, "expected first message first")
		assert.Equal(t, "m2", messages[1].Id, "expected second message second")
	})

	t.Run("empty room yields empty list", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListMessagesByRoom", "room-r").Return([]database.Message{}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=room-r", nil)
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
		assert.JSONEq(t, "[]", rr.Body.String(), "expected an empty JSON array, not null")
	})
}

func TestDeleteMessageHandler(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/messages", nil)
		app.deleteMessage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected status code to be 400")
	})

	t.Run("unknown id", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetMessageById", "nope").Return(database.Message{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/messages?id=nope", nil)
		app.deleteMessage(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected status code to be 404")
		mockRepo.AssertNotCalled(t, "DeleteMessage", mock.Anything)
	})

	t.Run("successful delete", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetMessageById", "m1").Return(database.Message{Id: "m1", RoomId: "room-r"}, nil).Once()
		mockRepo.On("DeleteMessage", "m1").Return(nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/messages?id=m1", nil)
		app.deleteMessage(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code, "expected status code to be 204")
	})

	t.Run("store failure", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetMessageById", "m1").Return(database.Message{Id: "m1", RoomId: "room-r"}, nil).Once()
		mockRepo.On("DeleteMessage", "m1").Return(errors.New("db down")).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/messages?id=m1", nil)
		app.deleteMessage(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
	})
}

func TestGetRoomHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "abc").Return(database.Room{Id: 1, ExternalId: "abc", Name: "general"}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/rooms?id=abc", nil)
		app.getRoom(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")

		var room types.Room
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&room), "expected room response to decode")
		assert.Equal(t, "abc", room.ExternalId, "expected external id to match")
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetRoomByExternalId", "nope").Return(database.Room{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/rooms?id=nope", nil)
		app.getRoom(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected status code to be 404")
	})
}
