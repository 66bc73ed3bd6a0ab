// Package bus carries AgentMessages between agents over NATS.
//
// Every message travels in an Envelope holding the sender's identity token
// and a MAC over the encoded message. Publishers validate before sending and
// subscribers verify token, signature and validation again before handing a
// message to the application. Anything that fails on the receiving side is
// dropped and logged; it never reaches the handler.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/hupe1980/agentguard/auth"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/protocol"
)

// DefaultSubjectPrefix is prepended to recipient ids to form NATS subjects.
const DefaultSubjectPrefix = "agents"

// ErrInvalidAgentID is returned for ids that cannot be used as a subject token.
var ErrInvalidAgentID = errors.New("bus: invalid agent id")

// Conn is the subset of *nats.Conn the bus uses.
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Connect dials a NATS server.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

// Envelope is the wire format.
type Envelope struct {
	Message   json.RawMessage `json:"message"`
	Token     string          `json:"token"`
	Signature string          `json:"signature"`
}

// Handler receives verified messages.
type Handler func(msg protocol.AgentMessage)

// Options configures a Bus.
type Options struct {
	SubjectPrefix string
	Validator     *protocol.Validator
	Logger        logging.Logger
}

// Bus publishes and receives signed agent messages.
type Bus struct {
	conn      Conn
	auth      *auth.Authenticator
	prefix    string
	validator *protocol.Validator
	logger    logging.Logger
	dropped   atomic.Int64
}

// New creates a Bus on conn. The authenticator verifies tokens and signs
// payloads, so every participant must share its secret.
func New(conn Conn, a *auth.Authenticator, optFns ...func(o *Options)) *Bus {
	opts := Options{
		SubjectPrefix: DefaultSubjectPrefix,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Validator == nil {
		opts.Validator = protocol.NewValidator()
	}

	return &Bus{
		conn:      conn,
		auth:      a,
		prefix:    opts.SubjectPrefix,
		validator: opts.Validator,
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// Subject returns the subject an agent listens on.
func (b *Bus) Subject(agentID string) string {
	if b.prefix == "" {
		return agentID
	}
	return b.prefix + "." + agentID
}

// Publish validates msg, signs it and sends it to the recipient's subject.
// token is the sender's identity token. Invalid messages are refused with a
// *protocol.ValidationError and nothing is sent.
func (b *Bus) Publish(ctx context.Context, msg protocol.AgentMessage, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.validator.Validate(msg).Err(); err != nil {
		return err
	}

	if err := checkAgentID(msg.RecipientID); err != nil {
		return err
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	data, err := json.Marshal(Envelope{
		Message:   raw,
		Token:     token,
		Signature: b.auth.SignMessage(string(raw)),
	})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	if err := b.conn.Publish(b.Subject(msg.RecipientID), data); err != nil {
		return fmt.Errorf("failed to publish message %s: %w", msg.ID, err)
	}

	b.logger.Debug("message published", "message_id", msg.ID, "sender", msg.SenderID, "recipient", msg.RecipientID)

	return nil
}

// Subscribe delivers verified messages addressed to agentID to handler.
func (b *Bus) Subscribe(agentID string, handler Handler) (*nats.Subscription, error) {
	if err := checkAgentID(agentID); err != nil {
		return nil, err
	}

	sub, err := b.conn.Subscribe(b.Subject(agentID), func(m *nats.Msg) {
		msg, err := b.open(agentID, m.Data)
		if err != nil {
			b.dropped.Add(1)
			b.logger.Warn("message dropped", "agent", agentID, "reason", err.Error())
			return
		}
		handler(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", agentID, err)
	}

	return sub, nil
}

// Dropped returns how many inbound messages failed verification.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// open decodes and verifies an inbound envelope.
func (b *Bus) open(agentID string, data []byte) (protocol.AgentMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return protocol.AgentMessage{}, fmt.Errorf("undecodable envelope: %w", err)
	}

	if !b.auth.VerifySignature(string(env.Message), env.Signature) {
		return protocol.AgentMessage{}, errors.New("bad signature")
	}

	var msg protocol.AgentMessage
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return protocol.AgentMessage{}, fmt.Errorf("undecodable message: %w", err)
	}

	if !b.auth.VerifyToken(env.Token, msg.SenderID) {
		return protocol.AgentMessage{}, fmt.Errorf("authentication failed for %s", msg.SenderID)
	}

	if msg.RecipientID != agentID {
		return protocol.AgentMessage{}, fmt.Errorf("misrouted message for %s", msg.RecipientID)
	}

	if err := b.validator.Validate(msg).Err(); err != nil {
		return protocol.AgentMessage{}, err
	}

	return msg, nil
}

func checkAgentID(id string) error {
	if id == "" || strings.ContainsAny(id, ".*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidAgentID, id)
	}
	return nil
}

// WithSubjectPrefix sets the subject prefix.
func WithSubjectPrefix(p string) func(o *Options) {
	return func(o *Options) { o.SubjectPrefix = p }
}

// WithValidator sets the validator used on both ends.
func WithValidator(v *protocol.Validator) func(o *Options) {
	return func(o *Options) { o.Validator = v }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

var _ Conn = (*nats.Conn)(nil)
