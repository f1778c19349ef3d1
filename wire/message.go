package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message is anything that can appear as the body of a framed message or
// a response payload: it knows its own type code and can serialize
// itself into a Buffer.
type Message interface {
	// Code returns the registered type code for this message's type.
	Code() Code
	// WriteData appends the message body (everything after the 8-byte
	// type code) to buf.
	WriteData(buf *Buffer) error
}

// Decoder reads a message body back out of a Buffer. Implementations are
// normally the zero value of the concrete message type: Registry.Lookup
// returns a Factory that allocates one.
type Decoder interface {
	ReadData(buf *Buffer) error
}

// Codec is the combination every registered message type must satisfy:
// encodable and decodable.
type Codec interface {
	Message
	Decoder
}

// Factory allocates a fresh, zero-valued instance of one message type,
// ready to have ReadData called on it.
type Factory func() Codec

// Registry is the name -> code -> factory table described in spec §6.
// The module never dereferences a language runtime-type-info tag; every
// lookup goes through the 6-bit tag code instead (spec §9).
type Registry struct {
	byCode map[Code]Factory
	byTag  map[string]Code
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byCode: make(map[Code]Factory),
		byTag:  make(map[string]Code),
	}
}

// Register derives a Code from tag and binds it to factory. It fails if
// tag is malformed (see EncodeTag) or already registered; collisions are
// programmer errors caught here, at registration time, not at steady
// state (spec §7).
func (r *Registry) Register(tag string, factory Factory) (Code, error) {
	code, err := EncodeTag(tag)
	if err != nil {
		return 0, err
	}
	if _, exists := r.byTag[tag]; exists {
		return 0, fmt.Errorf("wire: Register(%q): already registered", tag)
	}
	if _, exists := r.byCode[code]; exists {
		return 0, fmt.Errorf("wire: Register(%q): code %#x collides with an existing registration", tag, uint64(code))
	}
	r.byTag[tag] = code
	r.byCode[code] = factory
	return code, nil
}

// Lookup returns the factory registered for code, or false if none.
func (r *Registry) Lookup(code Code) (Factory, bool) {
	f, ok := r.byCode[code]
	return f, ok
}

// CodeOf returns the code previously derived for tag by Register.
func (r *Registry) CodeOf(tag string) (Code, bool) {
	c, ok := r.byTag[tag]
	return c, ok
}

// EncodeMessage appends a message on the wire: an 8-byte type code
// followed by its body, or just NullCode for a nil msg (spec §6).
func EncodeMessage(buf *Buffer, msg Codec) error {
	if msg == nil {
		return buf.WriteUint64(uint64(NullCode))
	}
	if err := buf.WriteUint64(uint64(msg.Code())); err != nil {
		return err
	}
	return msg.WriteData(buf)
}

// EncodeMessageAs appends a message tagged with an explicit code rather
// than msg.Code(). The swarm manager uses this for every dispatch: the
// graph's edge, not the payload type, owns the code for a master->worker
// hop (spec §4.4), so a transition with no interesting payload can still
// carry its required code with a nil body.
func EncodeMessageAs(buf *Buffer, code Code, msg Message) error {
	if err := buf.WriteUint64(uint64(code)); err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	return msg.WriteData(buf)
}

// DecodeMessage reads a message back from buf using reg to resolve the
// type code to a factory. A NullCode yields (nil, nil).
func DecodeMessage(buf *Buffer, reg *Registry) (Codec, error) {
	raw, err := buf.ReadUint64()
	if err != nil {
		return nil, err
	}
	code := Code(raw)
	if code == NullCode {
		return nil, nil
	}
	factory, ok := reg.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("wire: DecodeMessage: unknown type code %#x", uint64(code))
	}
	msg := factory()
	if err := msg.ReadData(buf); err != nil {
		return nil, err
	}
	return msg, nil
}

// WriteFrame writes a framed message to w: an 8-byte little-endian
// length followed by payload (spec §6: "8-byte length ∥ byte area").
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one framed message from r: the 8-byte length prefix
// followed by exactly that many payload bytes.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Empty is a Codec with no body, for transitions whose message type
// carries no payload beyond its code (spec §6: the code alone is
// sometimes the whole signal, e.g. a plain "stop" or "done"). Its own
// Code() is meaningless — EncodeMessageAs never consults it — since one
// Empty value can back any number of differently-coded transitions via
// Registry.Register.
type Empty struct{}

func (*Empty) Code() Code                  { return NullCode }
func (*Empty) WriteData(buf *Buffer) error { return nil }
func (*Empty) ReadData(buf *Buffer) error  { return nil }

// RequestedState is the worker's advisory signal, carried in every
// WorkerResponse: whether it wants more work or wants to stop (spec §3,
// §6).
type RequestedState int32

const (
	// RequestWork signals the worker is ready for another transition.
	RequestWork RequestedState = 0
	// RequestStop signals the worker wants to stop after this reply is
	// processed; the master decides when to actually honor it.
	RequestStop RequestedState = 1
)

// EncodeResponse writes a WorkerResponse body: requested_state as a
// 4-byte int, followed by an optional nested message (spec §6).
func EncodeResponse(buf *Buffer, requested RequestedState, payload Codec) error {
	if err := buf.WriteInt32(int32(requested)); err != nil {
		return err
	}
	return EncodeMessage(buf, payload)
}

// DecodeResponse reads a WorkerResponse body back out of buf.
func DecodeResponse(buf *Buffer, reg *Registry) (RequestedState, Codec, error) {
	raw, err := buf.ReadInt32()
	if err != nil {
		return 0, nil, err
	}
	payload, err := DecodeMessage(buf, reg)
	if err != nil {
		return 0, nil, err
	}
	return RequestedState(raw), payload, nil
}
