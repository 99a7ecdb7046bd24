package certificate

import (
	"encoding/json"
	"fmt"
)

// Command is one of the six certificate commands.
type Command interface {
	Key() Key
	CommandType() string
	isCommand()
}

// CreateCertificate registers a certificate for domain, or subdomain.domain.
type CreateCertificate struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Wildcard  bool   `json:"wildcard"`
}

// OrderCertificate obtains the first certificate for an existing key.
type OrderCertificate struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Wildcard  bool   `json:"wildcard"`
}

// StartRenewCertificate marks a certificate as being renewed.
type StartRenewCertificate struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Wildcard  bool   `json:"wildcard"`
}

// RenewCertificate orders a replacement once a renewal was started.
type RenewCertificate struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	Wildcard  bool   `json:"wildcard"`
}

// PublishCertificate pushes the current material to the target platform.
type PublishCertificate struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
}

// DeleteCertificate forgets a certificate.
type DeleteCertificate struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
}

func (c CreateCertificate) Key() Key     { return NewKey(c.Domain, c.Subdomain) }
func (c OrderCertificate) Key() Key      { return NewKey(c.Domain, c.Subdomain) }
func (c StartRenewCertificate) Key() Key { return NewKey(c.Domain, c.Subdomain) }
func (c RenewCertificate) Key() Key      { return NewKey(c.Domain, c.Subdomain) }
func (c PublishCertificate) Key() Key    { return NewKey(c.Domain, c.Subdomain) }
func (c DeleteCertificate) Key() Key     { return NewKey(c.Domain, c.Subdomain) }

func (CreateCertificate) CommandType() string     { return "CreateCertificate" }
func (OrderCertificate) CommandType() string      { return "OrderCertificate" }
func (StartRenewCertificate) CommandType() string { return "StartRenewCertificate" }
func (RenewCertificate) CommandType() string      { return "RenewCertificate" }
func (PublishCertificate) CommandType() string    { return "PublishCertificate" }
func (DeleteCertificate) CommandType() string     { return "DeleteCertificate" }

func (CreateCertificate) isCommand()     {}
func (OrderCertificate) isCommand()      {}
func (StartRenewCertificate) isCommand() {}
func (RenewCertificate) isCommand()      {}
func (PublishCertificate) isCommand()    {}
func (DeleteCertificate) isCommand()     {}

var commandDecoders = map[string]func(json.RawMessage) (Command, error){
	CreateCertificate{}.CommandType():     decodeCommand[CreateCertificate],
	OrderCertificate{}.CommandType():      decodeCommand[OrderCertificate],
	StartRenewCertificate{}.CommandType(): decodeCommand[StartRenewCertificate],
	RenewCertificate{}.CommandType():      decodeCommand[RenewCertificate],
	PublishCertificate{}.CommandType():    decodeCommand[PublishCertificate],
	DeleteCertificate{}.CommandType():     decodeCommand[DeleteCertificate],
}

func decodeCommand[T Command](raw json.RawMessage) (Command, error) {
	var cmd T
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

type commandEnvelope struct {
	Type    string          `json:"type"`
	Command json.RawMessage `json:"command"`
}

// ParseCommand decodes {"type": "<CommandType>", "command": {...}}.
func ParseCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	decode, ok := commandDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandType, env.Type)
	}
	if len(env.Command) == 0 {
		return nil, fmt.Errorf("%w: missing command body", ErrMalformedCommand)
	}
	cmd, err := decode(env.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	return cmd, nil
}

// MarshalCommand is the inverse of ParseCommand.
func MarshalCommand(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(commandEnvelope{Type: cmd.CommandType(), Command: body})
}
