package movetree

// Header is one bracketed key-value pair of a game record.
type Header struct {
	Key   string
	Value string
}

// Headers are kept in record order.
type Headers []Header

// DefaultHeaders returns the seven tag roster with unknown values.
func DefaultHeaders() Headers {
	return Headers{
		{"Event", "?"},
		{"Site", "?"},
		{"Date", "????.??.??"},
		{"Round", "?"},
		{"White", "?"},
		{"Black", "?"},
		{"Result", "*"},
	}
}

// Get returns the value stored under key.
func (h Headers) Get(key string) (string, bool) {
	for _, kv := range h {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set replaces the value under key or appends a new pair.
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: value})
}
