package wire

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Message keys.
const (
	KeyStatus       = "status"
	KeyTable        = "table"
	KeyID           = "id"
	KeyOwnerID      = "profile_id"
	KeyRecord       = "record"
	KeyRecords      = "records"
	KeyPatch        = "patch"
	KeyUsername     = "username"
	KeyPassword     = "password"
	KeyUserID       = "user_id"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyContentType  = "content_type"
	KeyKey          = "key"
	KeyURL          = "url"
)

// StatusOK is the Ping reply status.
const StatusOK = "OK"

// NewMessage builds a Struct from plain Go values (see structpb.NewValue for
// the supported types).
func NewMessage(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

// String returns the string value at key, or "" when absent.
func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

// Object returns the nested object at key as a plain map, or nil.
func Object(s *structpb.Struct, key string) map[string]any {
	if s == nil {
		return nil
	}
	v := s.GetFields()[key].GetStructValue()
	if v == nil {
		return nil
	}
	return v.AsMap()
}

// Objects returns the list of objects at key. Non-object items are an error.
func Objects(s *structpb.Struct, key string) ([]map[string]any, error) {
	if s == nil {
		return nil, nil
	}
	list := s.GetFields()[key].GetListValue()
	if list == nil {
		return nil, nil
	}
	out := make([]map[string]any, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("%s[%d]: not an object", key, i)
		}
		out = append(out, obj.AsMap())
	}
	return out, nil
}
