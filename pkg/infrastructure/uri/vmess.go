package uri

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/google/uuid"
)

// parseVMess handles vmess://base64(json)
func parseVMess(rest string) (*entity.Descriptor, error) {
	body, _, _ := strings.Cut(rest, "#")
	decoded, err := decodeBase64(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	members, err := decodeMembers(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	d := entity.NewDescriptor(entity.ProtocolVMess)
	d.Members = members

	d.Host = strings.Trim(memberString(members, "add"), "[]")
	if d.Host == "" {
		return nil, fmt.Errorf("%w: empty add", ErrEndpoint)
	}

	port, err := memberPort(members)
	if err != nil {
		return nil, err
	}
	d.Port = port

	d.Credential = memberString(members, "id")
	if _, err := uuid.Parse(d.Credential); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredential, err)
	}

	d.Transport = entity.ParseTransport(memberString(members, "net"))
	d.Security, _ = entity.ParseSecurity(memberString(members, "tls"))
	return d, nil
}

// decodeMembers decodes a JSON object keeping member order, keys lower-cased
func decodeMembers(data []byte) ([]entity.Member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}

	var members []entity.Member
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}

		key = strings.ToLower(key)
		if i, seen := index[key]; seen {
			members[i].Value = raw
			continue
		}
		index[key] = len(members)
		members = append(members, entity.Member{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func memberRaw(members []entity.Member, key string) ([]byte, bool) {
	for _, m := range members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// memberString returns the member as a string, numbers are returned in literal form
func memberString(members []entity.Member, key string) string {
	raw, ok := memberRaw(members, key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func memberPort(members []entity.Member) (int, error) {
	value := memberString(members, "port")
	if value == "" {
		return 0, fmt.Errorf("%w: missing port", ErrEndpoint)
	}
	return parsePort(value)
}

// encodeMembers writes the members back as a JSON object in order
func encodeMembers(members []entity.Member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		if !json.Valid(m.Value) {
			return nil, fmt.Errorf("member %q is not valid JSON", m.Key)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// withMember returns a copy of members with key set to value, appended when absent
func withMember(members []entity.Member, key string, value any) ([]entity.Member, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Member, 0, len(members)+1)
	replaced := false
	for _, m := range members {
		if m.Key == key {
			m.Value = raw
			replaced = true
		}
		out = append(out, m)
	}
	if !replaced {
		out = append(out, entity.Member{Key: key, Value: raw})
	}
	return out, nil
}
