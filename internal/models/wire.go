package models

// Client-to-server actions. Unknown actions are deliberately ignored by the
// session so newer clients can talk to older servers.
const (
	ActionRegister    = "register"
	ActionLogin       = "login"
	ActionResume      = "resume"
	ActionJoinRoom    = "join_room"
	ActionSendMessage = "send_message"
	ActionSendFile    = "send_file"
)

// Server-to-client actions.
const (
	ActionRegisterResponse = "register_response"
	ActionLoginResponse    = "login_response"
	ActionRoomJoined       = "room_joined"
	ActionNewMessage       = "new_message"
	ActionNewFile          = "new_file"
	ActionUserJoined       = "user_joined"
	ActionUserLeft         = "user_left"
	ActionError            = "error"
)

// Request is the decoded form of one client frame. Which fields are set
// depends on Action; absent fields unmarshal to their zero value.
type Request struct {
	Action   string `json:"action"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Room     string `json:"room,omitempty"`
	Message  string `json:"message,omitempty"`
	Type     string `json:"type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Filedata string `json:"filedata,omitempty"`
}

// RegisterResponse answers a register request.
type RegisterResponse struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginResponse answers a login or resume request. Rooms and Token are only
// set on success; Token lets the client re-authenticate after a reconnect
// without replaying the password.
type LoginResponse struct {
	Action  string   `json:"action"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Rooms   []string `json:"rooms,omitempty"`
	Token   string   `json:"token,omitempty"`
}

// RoomJoined answers a join_room request with the replayed history
// (chronological, bounded) and the current member list.
type RoomJoined struct {
	Action  string         `json:"action"`
	Room    string         `json:"room"`
	History []HistoryEntry `json:"history"`
	Users   []string       `json:"users"`
}

// NewMessage is pushed to every room member except the sender.
type NewMessage struct {
	Action    string `json:"action"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// NewFile is pushed to every room member except the sender and carries the
// attachment inline, base64-encoded by the client.
type NewFile struct {
	Action    string `json:"action"`
	Username  string `json:"username"`
	Filename  string `json:"filename"`
	Filedata  string `json:"filedata"`
	Timestamp string `json:"timestamp"`
}

// UserJoined notifies a room that a member arrived, with the updated roster.
type UserJoined struct {
	Action   string   `json:"action"`
	Username string   `json:"username"`
	Room     string   `json:"room"`
	Users    []string `json:"users"`
}

// UserLeft notifies a room that a member departed, with the updated roster.
type UserLeft struct {
	Action   string   `json:"action"`
	Username string   `json:"username"`
	Users    []string `json:"users"`
}

// ErrorEvent reports a per-request failure back to the offending connection
// only; it never affects other sessions.
type ErrorEvent struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}
