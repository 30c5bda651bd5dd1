package querycache

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Key identifies one cached query: a resource family plus its parameters.
// Two keys with equal canonical params collide on purpose.
type Key struct {
	Resource string
	Params   any
	hash     string
}

// NewKey builds a key and computes its canonical form.
func NewKey(resource string, params any) Key {
	k := Key{Resource: resource, Params: params}
	k.hash = resource
	if c := canonicalParams(params); c != "" {
		k.hash += "?" + c
	}
	return k
}

// String is the canonical form used for lookups and logging.
func (k Key) String() string {
	if k.hash == "" {
		return NewKey(k.Resource, k.Params).hash
	}
	return k.hash
}

// canonicalParams renders params as JSON with sorted keys and zero values
// removed, so {"page":1,"sort":""} and {"page":1} are the same query.
func canonicalParams(params any) string {
	if params == nil {
		return ""
	}
	if s, ok := params.(string); ok {
		return s
	}
	raw, err := sonic.ConfigStd.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	var generic any
	if err := sonic.ConfigStd.Unmarshal(raw, &generic); err != nil {
		return string(raw)
	}
	generic = prune(generic)
	if generic == nil {
		return ""
	}
	out, err := sonic.ConfigStd.Marshal(generic)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if p := prune(inner); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		if len(t) == 0 {
			return nil
		}
		return t
	case string:
		if t == "" {
			return nil
		}
	case float64:
		if t == 0 {
			return nil
		}
	case bool:
		if !t {
			return nil
		}
	case nil:
		return nil
	}
	return v
}
