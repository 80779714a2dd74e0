package notifications

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/unicode/norm"
)

// Record is a loosely-typed notification payload as received from persistence.
type Record map[string]any

// Field aliases in lookup order. The first key present in a record wins.
var (
	idKeys       = []string{"id", "_id", "notificationId", "notification_id", "uuid"}
	readKeys     = []string{"read", "isRead", "is_read", "seen"}
	dateKeys     = []string{"date", "createdAt", "created_at", "timestamp", "time"}
	titleKeys    = []string{"title", "subject"}
	messageKeys  = []string{"message", "body", "content"}
	typeKeys     = []string{"type", "level", "severity"}
	priorityKeys = []string{"priority"}
	categoryKeys = []string{"category"}
	userKeys     = []string{"userId", "user_id", "recipientId", "recipient_id"}
	phoneKeys    = []string{"phoneNotification", "phone_notification", "sms"}
)

// Normalizer maps heterogeneous payloads to the canonical Notification.
// It never fails on missing or mistyped fields; defaults are substituted instead.
type Normalizer struct {
	// Now supplies the date for records without a usable timestamp.
	// Defaults to time.Now.
	Now func() time.Time
}

var defaultNormalizer = Normalizer{}

// Normalize converts a record using the current time as date fallback.
func Normalize(rec Record) Notification {
	return defaultNormalizer.Normalize(rec)
}

// Normalize converts a record to a fully-populated Notification.
func (z Normalizer) Normalize(rec Record) Notification {
	n := Notification{
		ID:                rec.str(idKeys...),
		Read:              rec.boolean(readKeys...),
		Title:             text(rec.str(titleKeys...)),
		Message:           text(rec.str(messageKeys...)),
		Type:              Type(strings.ToLower(rec.str(typeKeys...))),
		Priority:          ParsePriority(rec.str(priorityKeys...)),
		Category:          text(rec.str(categoryKeys...)),
		UserID:            rec.str(userKeys...),
		PhoneNotification: rec.boolean(phoneKeys...),
	}
	if !n.Type.Valid() {
		n.Type = TypeInfo
	}
	if n.Category == "" {
		n.Category = DefaultCategory
	}

	date, ok := rec.time(dateKeys...)
	if !ok {
		date = z.now()
	}
	n.Date = date

	return n
}

func (z Normalizer) now() time.Time {
	if z.Now != nil {
		return z.Now()
	}
	return time.Now()
}

func (r Record) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r Record) str(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (r Record) boolean(keys ...string) bool {
	v, ok := r.lookup(keys...)
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

func (r Record) time(keys ...string) (time.Time, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func text(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// looksLikeNotification distinguishes a bare notification object from an
// envelope that merely wraps one under "data".
func (r Record) looksLikeNotification() bool {
	for _, keys := range [][]string{idKeys, titleKeys, messageKeys} {
		if _, ok := r.lookup(keys...); ok {
			return true
		}
	}
	return false
}

// listEnvelope extracts the notification array from one response shape.
type listEnvelope func(v any) ([]any, bool)

// objectEnvelope extracts a single notification object from one response shape.
type objectEnvelope func(v any) (map[string]any, bool)

// Accepted response shapes, tried in order. Supporting a new shape is one more entry.
var (
	listEnvelopes = []listEnvelope{
		// [ {...}, ... ]
		func(v any) ([]any, bool) {
			items, ok := v.([]any)
			return items, ok
		},
		// { "data": [ ... ] }
		func(v any) ([]any, bool) {
			items, ok := field(v, "data").([]any)
			return items, ok
		},
		// { "data": { "data": [ ... ] } }
		func(v any) ([]any, bool) {
			items, ok := field(field(v, "data"), "data").([]any)
			return items, ok
		},
	}

	objectEnvelopes = []objectEnvelope{
		// { "id": ..., ... }
		func(v any) (map[string]any, bool) {
			obj, ok := v.(map[string]any)
			return obj, ok && Record(obj).looksLikeNotification()
		},
		// { "data": { "id": ..., ... } }
		func(v any) (map[string]any, bool) {
			obj, ok := field(v, "data").(map[string]any)
			return obj, ok && Record(obj).looksLikeNotification()
		},
		// { "data": { "data": { ... } } }
		func(v any) (map[string]any, bool) {
			obj, ok := field(field(v, "data"), "data").(map[string]any)
			return obj, ok
		},
	}
)

// decodeJSON keeps numbers as json.Number so large numeric ids survive
// exactly instead of being rounded through float64.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrMalformedPayload, errors.New("trailing data after JSON value"))
	}
	return v, nil
}

func field(v any, key string) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return obj[key]
}

// DecodeList decodes a list response in any supported envelope.
// Array elements that are not objects are skipped.
func (z Normalizer) DecodeList(body []byte) ([]Notification, error) {
	v, err := decodeJSON(body)
	if err != nil {
		return nil, err
	}

	for _, match := range listEnvelopes {
		items, ok := match(v)
		if !ok {
			continue
		}
		out := make([]Notification, 0, len(items))
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, z.Normalize(Record(obj)))
		}
		return out, nil
	}

	return nil, ErrUnknownEnvelope
}

// DecodeOne decodes a single-entity response in any supported envelope.
func (z Normalizer) DecodeOne(body []byte) (Notification, error) {
	v, err := decodeJSON(body)
	if err != nil {
		return Notification{}, err
	}

	for _, match := range objectEnvelopes {
		if obj, ok := match(v); ok {
			return z.Normalize(Record(obj)), nil
		}
	}

	return Notification{}, ErrUnknownEnvelope
}

// DecodeList decodes a list response using the current time as date fallback.
func DecodeList(body []byte) ([]Notification, error) {
	return defaultNormalizer.DecodeList(body)
}

// DecodeOne decodes a single-entity response using the current time as date fallback.
func DecodeOne(body []byte) (Notification, error) {
	return defaultNormalizer.DecodeOne(body)
}
