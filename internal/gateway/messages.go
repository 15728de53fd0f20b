package gateway

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var messagesYAML []byte

type declineEntry struct {
	Message    string `yaml:"message"`
	Instrument bool   `yaml:"instrument"`
}

type messageTable struct {
	Generic  string                  `yaml:"generic"`
	Declines map[string]declineEntry `yaml:"declines"`
}

var loadMessages = sync.OnceValue(func() messageTable {
	var table messageTable
	if err := yaml.Unmarshal(messagesYAML, &table); err != nil {
		// The table is embedded at build time; a parse failure is a
		// programming error and falls through to the generic message.
		return messageTable{Generic: "We couldn't process your payment."}
	}
	return table
})

// UserMessage maps a gateway decline code to a user-facing string, falling
// back to a generic message for unknown codes.
func UserMessage(declineCode string) string {
	table := loadMessages()
	if entry, ok := table.Declines[declineCode]; ok && entry.Message != "" {
		return entry.Message
	}
	return table.Generic
}

// InstrumentRelated reports whether a decline code points at the payment
// instrument. Instrument declines may be retried with a fresh intent;
// configuration errors may not.
func InstrumentRelated(declineCode string) bool {
	entry, ok := loadMessages().Declines[declineCode]
	return ok && entry.Instrument
}
