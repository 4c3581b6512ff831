// Package records reads and writes vault records through a Communicator,
// sealing values for the vault recipient and opening them with the caller's
// cipher.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/security"
)

const recordsPath = "records"

// Caller is the subset of the communicator used for record calls.
type Caller interface {
	Get(ctx context.Context, url string, usesAuth bool) (core.NetworkResponse, error)
	Post(ctx context.Context, url string, usesAuth bool, data any) (core.NetworkResponse, error)
	Put(ctx context.Context, url string, usesAuth bool, data any) (core.NetworkResponse, error)
	Delete(ctx context.Context, url string, usesAuth bool) (core.NetworkResponse, error)
}

// Record is one vault entry. Value holds the opened payload, or the sealed
// CryptoObject when Sealed is set because no cipher was available.
type Record struct {
	ID       string         `json:"id,omitempty"`
	Key      string         `json:"key,omitempty"`
	Value    any            `json:"value"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Sealed   bool           `json:"-"`
}

type ListFilter struct {
	Key   string
	Limit int
}

type Service struct {
	caller       Caller
	baseURL      string
	envelope     security.Envelope
	recipientKey string
	cipher       *security.CipherObject
	logger       core.Logger
}

type Option func(*Service)

// WithRecipientPublicKey enables sealing of written values.
func WithRecipientPublicKey(publicKeyHex string) Option {
	return func(s *Service) {
		s.recipientKey = strings.ToLower(strings.TrimSpace(publicKeyHex))
	}
}

// WithCipher enables opening of sealed values on read.
func WithCipher(cipher security.CipherObject) Option {
	return func(s *Service) {
		if strings.TrimSpace(cipher.Cipher) == "" {
			s.cipher = nil
			return
		}
		copied := cipher
		s.cipher = &copied
	}
}

func WithEnvelope(envelope security.Envelope) Option {
	return func(s *Service) {
		s.envelope = envelope
	}
}

func WithLogger(logger core.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(caller Caller, baseURL string, opts ...Option) (*Service, error) {
	if caller == nil {
		return nil, fmt.Errorf("records: caller is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("records: base url is required")
	}
	s := &Service{caller: caller, baseURL: baseURL, logger: glog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// CollectionURL returns <base>/records.
func CollectionURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/" + recordsPath
}

// ItemURL returns <base>/records/{id} with id path-escaped.
func ItemURL(baseURL string, id string) string {
	return CollectionURL(baseURL) + "/" + url.PathEscape(strings.TrimSpace(id))
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	endpoint := CollectionURL(s.baseURL)
	query := url.Values{}
	if key := strings.TrimSpace(filter.Key); key != "" {
		query.Set("key", key)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	res, err := s.caller.Get(ctx, endpoint, true)
	if err != nil {
		return nil, err
	}
	items, err := recordItems(res.Data)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		record, err := s.decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, fmt.Errorf("records: id is required")
	}
	res, err := s.caller.Get(ctx, ItemURL(s.baseURL, id), true)
	if err != nil {
		return Record{}, err
	}
	return s.decode(unwrapEnvelope(res.Data))
}

// Put creates the record with POST when ID is empty and replaces it with PUT
// otherwise. The returned record reflects the server response when it sends
// one back.
func (s *Service) Put(ctx context.Context, record Record) (Record, error) {
	sealedValue, sealed, err := s.seal(record.Value)
	if err != nil {
		return Record{}, err
	}
	body := map[string]any{"value": sealedValue}
	if record.Key != "" {
		body["key"] = record.Key
	}
	if len(record.Metadata) > 0 {
		body["metadata"] = record.Metadata
	}

	var res core.NetworkResponse
	if id := strings.TrimSpace(record.ID); id == "" {
		res, err = s.caller.Post(ctx, CollectionURL(s.baseURL), true, body)
	} else {
		body["id"] = id
		res, err = s.caller.Put(ctx, ItemURL(s.baseURL, id), true, body)
	}
	if err != nil {
		return Record{}, err
	}
	core.LogEvent(ctx, s.logger, core.LogLevelDebug, "records record written", map[string]any{
		"record_id": record.ID,
		"key":       record.Key,
		"sealed":    sealed,
		"status":    res.StatusCode,
	})

	if payload := unwrapEnvelope(res.Data); payload != nil {
		if _, ok := payload.(map[string]any); ok {
			written, err := s.decode(payload)
			if err != nil {
				return Record{}, err
			}
			if written.ID == "" {
				written.ID = record.ID
			}
			if written.Value == nil {
				written.Value = record.Value
			}
			return written, nil
		}
	}
	return record, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("records: id is required")
	}
	_, err := s.caller.Delete(ctx, ItemURL(s.baseURL, id), true)
	return err
}

func (s *Service) seal(value any) (any, bool, error) {
	if s.recipientKey == "" || value == nil {
		return value, false, nil
	}
	if security.IsEncrypted(value) {
		return value, true, nil
	}
	text, err := plaintext(value)
	if err != nil {
		return nil, false, err
	}
	sealed, err := s.envelope.Encrypt(text, s.recipientKey)
	if err != nil {
		return nil, false, fmt.Errorf("records: seal value: %w", err)
	}
	return sealed, true, nil
}

func (s *Service) open(value any) (any, bool, error) {
	obj, ok := security.AsCryptoObject(value)
	if !ok {
		return value, false, nil
	}
	if s.cipher == nil {
		return obj, true, nil
	}
	text, err := s.envelope.Decrypt(obj, *s.cipher)
	if err != nil {
		return nil, true, err
	}
	return core.ParseJSONOrRaw([]byte(text)), false, nil
}

func (s *Service) decode(item any) (Record, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("records: expected record object, got %T", item)
	}
	record := Record{
		ID:  scalarString(obj["id"]),
		Key: scalarString(obj["key"]),
	}
	if metadata, ok := obj["metadata"].(map[string]any); ok {
		record.Metadata = metadata
	}
	value, sealed, err := s.open(obj["value"])
	if err != nil {
		return Record{}, err
	}
	record.Value = value
	record.Sealed = sealed
	return record, nil
}

// plaintext JSON-encodes value; strings are sent as-is so they round-trip
// through the parse-or-keep-raw reader unchanged.
func plaintext(value any) (string, error) {
	if text, ok := value.(string); ok {
		return text, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("records: encode value: %w", err)
	}
	return string(encoded), nil
}

func recordItems(data any) ([]any, error) {
	switch typed := data.(type) {
	case nil:
		return nil, nil
	case []any:
		return typed, nil
	case map[string]any:
		for _, key := range []string{"records", "items", "data"} {
			if items, ok := typed[key].([]any); ok {
				return items, nil
			}
		}
	}
	return nil, fmt.Errorf("records: unexpected list payload %T", data)
}

func unwrapEnvelope(data any) any {
	if obj, ok := data.(map[string]any); ok {
		for _, key := range []string{"record", "data"} {
			if inner, ok := obj[key].(map[string]any); ok {
				return inner
			}
		}
	}
	return data
}

func scalarString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return ""
	}
}
