package scan

// Record types the reader understands.
const (
	RecordText = "text"
	RecordURL  = "url"
)

// Record is one NDEF record as delivered by the browser. Data is base64 in JSON.
type Record struct {
	RecordType string `json:"recordType"`
	Data       []byte `json:"data"`
}

// Message is the content of one tag read.
type Message struct {
	SerialNumber string   `json:"serialNumber,omitempty"`
	Records      []Record `json:"records"`
}

// EncodeTextRecord builds a well-known text record: a status byte holding the
// language code length, the language code, then the UTF-8 text.
func EncodeTextRecord(text, lang string) Record {
	if lang == "" {
		lang = "en"
	}
	if len(lang) > 0x3f {
		lang = lang[:0x3f]
	}
	data := make([]byte, 0, 1+len(lang)+len(text))
	data = append(data, byte(len(lang)))
	data = append(data, lang...)
	data = append(data, text...)
	return Record{RecordType: RecordText, Data: data}
}

// EncodeURLRecord builds a url record pointing at base + id.
func EncodeURLRecord(base, id string) Record {
	return Record{RecordType: RecordURL, Data: []byte(base + id)}
}
