package protocol

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers (protobuf wire format).
const (
	envelopeFieldID         protowire.Number = 1
	envelopeFieldSender     protowire.Number = 2
	envelopeFieldSentAt     protowire.Number = 3
	envelopeFieldCiphertext protowire.Number = 4
)

// ErrMalformedEnvelope is returned when an envelope frame cannot be decoded.
var ErrMalformedEnvelope = errors.New("protocol: malformed envelope")

// Envelope is one delivered message as sent in reply to GET. Ciphertext is
// opaque to the server; only the communicating clients can open it.
type Envelope struct {
	ID         string
	Sender     string
	SentAt     time.Time
	Ciphertext []byte
}

// MarshalBinary encodes the envelope in protobuf wire format, which keeps
// arbitrary ciphertext bytes intact and lets fields be added later.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, envelopeFieldID, protowire.BytesType)
	b = protowire.AppendString(b, e.ID)
	b = protowire.AppendTag(b, envelopeFieldSender, protowire.BytesType)
	b = protowire.AppendString(b, e.Sender)
	b = protowire.AppendTag(b, envelopeFieldSentAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.SentAt.UnixNano()))
	b = protowire.AppendTag(b, envelopeFieldCiphertext, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Ciphertext)
	return b, nil
}

// UnmarshalBinary decodes an envelope, skipping unknown fields.
func (e *Envelope) UnmarshalBinary(b []byte) error {
	*e = Envelope{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == envelopeFieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: id: %w", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			e.ID = v
			b = b[n:]
		case num == envelopeFieldSender && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: sender: %w", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			e.Sender = v
			b = b[n:]
		case num == envelopeFieldSentAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: sent_at: %w", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			e.SentAt = time.Unix(0, int64(v)).UTC()
			b = b[n:]
		case num == envelopeFieldCiphertext && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: ciphertext: %w", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			e.Ciphertext = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %w", ErrMalformedEnvelope, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
