package models

import "strings"

// CommandType enumerates the chat commands understood by the hatchery bot.
type CommandType string

const (
	CommandBatches  CommandType = "batches"
	CommandBatch    CommandType = "batch"
	CommandCounts   CommandType = "counts"
	CommandComplete CommandType = "complete"
	CommandStatus   CommandType = "status"
	CommandNote     CommandType = "note"
	CommandCandle   CommandType = "candle"
	CommandReport   CommandType = "report"
	CommandUnknown  CommandType = "unknown"
)

var knownCommands = map[string]CommandType{
	string(CommandBatches):  CommandBatches,
	string(CommandBatch):    CommandBatch,
	string(CommandCounts):   CommandCounts,
	string(CommandComplete): CommandComplete,
	string(CommandStatus):   CommandStatus,
	string(CommandNote):     CommandNote,
	string(CommandCandle):   CommandCandle,
	string(CommandReport):   CommandReport,
}

// Command represents a parsed operator instruction extracted from chat text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from free-form text. The command word is
// case-insensitive; arguments keep their original casing so notes survive intact.
func ParseCommand(message string) Command {
	cmd := Command{Raw: message, Type: CommandUnknown}

	tokens := strings.Fields(strings.TrimSpace(message))
	if len(tokens) == 0 {
		return cmd
	}

	head := strings.TrimPrefix(strings.ToLower(tokens[0]), "/")
	if t, ok := knownCommands[head]; ok {
		cmd.Type = t
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
