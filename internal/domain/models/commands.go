package models

import "strings"

// CommandType enumerates the queries a manager can send over WhatsApp.
type CommandType string

const (
	CommandStock   CommandType = "stock"
	CommandDigest  CommandType = "digest"
	CommandReport  CommandType = "report"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed query extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from free-form text. The leading slash is
// optional and the keyword is case-insensitive; arguments keep their case.
func ParseCommand(message string) Command {
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(message)
	if len(tokens) == 0 {
		return cmd
	}

	switch head := CommandType(strings.ToLower(strings.TrimPrefix(tokens[0], "/"))); head {
	case CommandStock, CommandDigest, CommandReport, CommandHelp:
		cmd.Type = head
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}
