package monitor

// CommandID identifies a monitor command.
type CommandID int

const (
	Help CommandID = iota
	Regs
	Mem
	Dis
	Read
	Write
	Fill
	Reset
	Step
	Trace
	BList
	BreakI
	BreakR
	BreakW
	WatchI
	WatchR
	WatchW
	BClearI
	BClearR
	BClearW
	WClearI
	WClearR
	WClearW
	Trigger
	Continue

	numCommands
)

// Command describes one entry of the command table.
type Command struct {
	ID   CommandID
	Name string
	Args string

	// needs the memory access port
	memory bool
}

// Memory reports whether the command needs the memory access extension.
func (c Command) Memory() bool {
	return c.memory
}

// Usage returns the name followed by the argument synopsis.
func (c Command) Usage() string {
	if c.Args == "" {
		return c.Name
	}
	return c.Name + " " + c.Args
}

var commandTable = [numCommands]Command{
	{ID: Help, Name: "help"},
	{ID: Regs, Name: "regs", memory: true},
	{ID: Mem, Name: "mem", Args: "[addr]", memory: true},
	{ID: Dis, Name: "dis", Args: "[addr]", memory: true},
	{ID: Read, Name: "read", Args: "addr", memory: true},
	{ID: Write, Name: "write", Args: "addr data", memory: true},
	{ID: Fill, Name: "fill", Args: "start end data", memory: true},
	{ID: Reset, Name: "reset"},
	{ID: Step, Name: "step", Args: "[count [trace]]"},
	{ID: Trace, Name: "trace", Args: "interval"},
	{ID: BList, Name: "blist"},
	{ID: BreakI, Name: "breaki", Args: "addr [trigger]"},
	{ID: BreakR, Name: "breakr", Args: "addr [trigger]"},
	{ID: BreakW, Name: "breakw", Args: "addr [trigger]"},
	{ID: WatchI, Name: "watchi", Args: "addr [trigger]"},
	{ID: WatchR, Name: "watchr", Args: "addr [trigger]"},
	{ID: WatchW, Name: "watchw", Args: "addr [trigger]"},
	{ID: BClearI, Name: "bcleari", Args: "addr|index"},
	{ID: BClearR, Name: "bclearr", Args: "addr|index"},
	{ID: BClearW, Name: "bclearw", Args: "addr|index"},
	{ID: WClearI, Name: "wcleari", Args: "addr|index"},
	{ID: WClearR, Name: "wclearr", Args: "addr|index"},
	{ID: WClearW, Name: "wclearw", Args: "addr|index"},
	{ID: Trigger, Name: "trigger", Args: "addr|index code"},
	{ID: Continue, Name: "continue"},
}

func (id CommandID) String() string {
	if id < 0 || id >= numCommands {
		return "unknown"
	}
	return commandTable[id].Name
}
