package protocol

// Command types produced by the built-in plugins.
const (
	CommandMove                = "move"
	CommandPick                = "pick"
	CommandPickLocation        = "pickLocation"
	CommandPickCard            = "pickCard"
	CommandShuffle             = "shuffle"
	CommandSetCardVariable     = "setCardVariable"
	CommandSetLocationVariable = "setLocationVariable"
	CommandSetBoardVariable    = "setBoardVariable"
	CommandLabel               = "label"
	CommandDelay               = "delay"
	CommandSendMessage         = "sendMessage"
)

// Command is a concrete, already-resolved action carrying the minimum data
// needed to apply it. A single rule may expand into zero, one or many commands.
type Command struct {
	Type string `json:"type"`

	CardID     int    `json:"cardId,omitempty"`
	FromID     int    `json:"fromId,omitempty"`
	ToID       int    `json:"toId,omitempty"`
	Index      int    `json:"index,omitempty"`
	LocationID int    `json:"locationId,omitempty"`
	Seed       int64  `json:"seed,omitempty"`
	Key        string `json:"key,omitempty"`
	Value      string `json:"value,omitempty"`
	Affects    string `json:"affects,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	Name       string `json:"name,omitempty"`
	Bubbles    bool   `json:"bubbles,omitempty"`
	Revert     bool   `json:"revert,omitempty"`
}

// BatchCommand is the unit of exchange for one resolved rule step: a single
// user's response on the way in, the settled per-user command sets on the way
// out.
type BatchCommand struct {
	RuleID   int                  `json:"ruleId"`
	Commands map[string][]Command `json:"commands"`
}

// NewBatch creates a batch answering the given rule for one user.
func NewBatch(ruleID int, user string, commands []Command) *BatchCommand {
	return &BatchCommand{
		RuleID:   ruleID,
		Commands: map[string][]Command{user: commands},
	}
}

// Result re-expresses a settled command as the client-visible outcome handed
// back to the rule script. Ids are resolved by the privileged bank client,
// which has full board visibility.
type Result struct {
	Command     Command `json:"command"`
	CardIDs     []int   `json:"cardIds,omitempty"`
	LocationIDs []int   `json:"locationIds,omitempty"`
	Value       string  `json:"value,omitempty"`
}

// Aggregate is the per-user resolved results for one completed rule step.
type Aggregate map[string][]Result
