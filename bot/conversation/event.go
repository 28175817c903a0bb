package conversation

// EventKind discriminates inbound user events. Voice is absent on purpose:
// the transport transcribes audio to text before dispatch, so the router
// only ever sees text.
type EventKind string

const (
	EventButton   EventKind = "button"
	EventText     EventKind = "text"
	EventImage    EventKind = "image"
	EventDocument EventKind = "document"
	EventCommand  EventKind = "command"
)

// Command names the explicit commands the router understands.
type Command string

const (
	CommandStart  Command = "start"
	CommandCancel Command = "cancel"
	CommandFinish Command = "finish"
)

// Event is one normalized unit of user interaction.
type Event struct {
	Kind    EventKind
	Tag     string // callback tag for EventButton
	Text    string // payload for EventText
	Image   []byte // JPEG bytes for EventImage
	Data    []byte // raw attachment for EventDocument
	Name    string // attachment filename for EventDocument
	Command Command
}

// Outbound is one message the router asks the transport to deliver.
type Outbound struct {
	Text string
	// Menu attaches an inline keyboard; nil for plain messages.
	Menu *Menu
	// ShowFinish attaches the /finish_dialog reply keyboard.
	ShowFinish bool
	// RemoveKeyboard hides a previously shown reply keyboard.
	RemoveKeyboard bool
	// Chunked marks text already cut to transport size by the streaming
	// path; the transport must not re-split it.
	Chunked bool
}
