package database

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	DeleteRoom(id int) error
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageById(id string) (Message, error)
	ListMessagesByRoom(roomId string) ([]Message, error)
	DeleteMessage(id string) error
}
