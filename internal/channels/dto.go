package channels

// ChannelRequest is the payload for creating or updating a channel.
type ChannelRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Fields      []FieldDef `json:"fields"`
}
