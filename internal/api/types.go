package api

// User is a chat participant as returned by the directory service.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   Avatar `json:"avatar,omitempty"`
}

// Avatar is a user's profile image reference.
type Avatar struct {
	URL string `json:"url,omitempty"`
}

// Attachment is a file attached to a message.
//
// URL is set on server-returned messages. LocalPath is only used on the send
// path to name the file to upload; it is never populated by the server.
type Attachment struct {
	URL       string `json:"url,omitempty"`
	LocalPath string `json:"-"`
}

// Message is a single chat message.
//
// Messages belong to exactly one chat and are immutable after creation; the
// only client-side mutation is replacing an optimistic temporary id with the
// server-assigned one.
type Message struct {
	ID          string       `json:"_id"`
	ChatID      string       `json:"chat"`
	Sender      User         `json:"sender"`
	Content     string       `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
}

// Chat is a direct or group conversation.
type Chat struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name,omitempty"`
	IsGroupChat  bool     `json:"isGroupChat"`
	Participants []User   `json:"participants,omitempty"`
	AdminID      string   `json:"admin,omitempty"`
	LastMessage  *Message `json:"lastMessage,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// apiResponse is the backend's common response envelope.
type apiResponse struct {
	StatusCode int     `json:"statusCode,omitempty"`
	Message    string  `json:"message,omitempty"`
	Success    bool    `json:"success,omitempty"`
	Data       rawJSON `json:"data,omitempty"`
}

// rawJSON defers decoding of the data payload until the caller knows its shape.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
