package debugger

import (
	"fmt"
	"sync"

	"github.com/gophjp/fjp/vm"
)

// WatchType represents the type of watchpoint.
// NOTE: the current implementation can only detect value changes, not
// specific read/write operations. All watchpoint types behave the same
// way - they trigger when the monitored value differs from its previous
// value. True read-only or write-only tracking would require
// integration with the VM's slot-access instrumentation (vm.SlotTrace).
type WatchType int

const (
	WatchWrite     WatchType = iota // Trigger on write (currently same as WatchReadWrite)
	WatchRead                       // Trigger on read (currently same as WatchReadWrite)
	WatchReadWrite                  // Trigger on read or write (value change detection)
)

// Watchpoint represents a watchpoint for monitoring a stack slot or one
// of the VM's three registers (PC, BP, SP) for a value change.
type Watchpoint struct {
	ID         int
	Type       WatchType
	Expression string // Expression being watched (e.g. "pc", "total")
	Address    int    // Resolved stack slot address, when IsRegister is false
	IsRegister bool   // True if watching pc/bp/sp rather than a stack slot
	Register   string // "pc", "bp", or "sp" when IsRegister is true
	Enabled    bool
	LastValue  int
	HitCount   int
}

// WatchpointManager manages all watchpoints
type WatchpointManager struct {
	mu          sync.RWMutex
	watchpoints map[int]*Watchpoint
	nextID      int
}

// NewWatchpointManager creates a new watchpoint manager
func NewWatchpointManager() *WatchpointManager {
	return &WatchpointManager{
		watchpoints: make(map[int]*Watchpoint),
		nextID:      1,
	}
}

// AddWatchpoint adds a new watchpoint
func (wm *WatchpointManager) AddWatchpoint(wpType WatchType, expression string, address int, isRegister bool, register string) *Watchpoint {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp := &Watchpoint{
		ID:         wm.nextID,
		Type:       wpType,
		Expression: expression,
		Address:    address,
		IsRegister: isRegister,
		Register:   register,
		Enabled:    true,
	}

	wm.watchpoints[wp.ID] = wp
	wm.nextID++

	return wp
}

// DeleteWatchpoint removes a watchpoint by ID
func (wm *WatchpointManager) DeleteWatchpoint(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if _, exists := wm.watchpoints[id]; !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}

	delete(wm.watchpoints, id)
	return nil
}

// EnableWatchpoint enables a watchpoint by ID
func (wm *WatchpointManager) EnableWatchpoint(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}

	wp.Enabled = true
	return nil
}

// DisableWatchpoint disables a watchpoint by ID
func (wm *WatchpointManager) DisableWatchpoint(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}

	wp.Enabled = false
	return nil
}

// GetWatchpoint gets a watchpoint by ID
func (wm *WatchpointManager) GetWatchpoint(id int) *Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	return wm.watchpoints[id]
}

// GetAllWatchpoints returns all watchpoints
func (wm *WatchpointManager) GetAllWatchpoints() []*Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	result := make([]*Watchpoint, 0, len(wm.watchpoints))
	for _, wp := range wm.watchpoints {
		result = append(result, wp)
	}

	return result
}

// registerValue reads one of the VM's three registers by name.
func registerValue(machine *vm.VM, name string) (int, error) {
	switch name {
	case "pc":
		return machine.Regs.PC, nil
	case "bp":
		return machine.Regs.BP, nil
	case "sp":
		return machine.Regs.SP, nil
	default:
		return 0, fmt.Errorf("unknown register %q", name)
	}
}

// slotValue reads a stack slot, bounds-checked against the live stack
// pointer so a watch on a slot that hasn't been allocated yet reads as
// zero rather than panicking.
func slotValue(machine *vm.VM, address int) (int, error) {
	if address < 0 || address > machine.Regs.SP {
		return 0, nil
	}
	return machine.Stack[address], nil
}

// CheckWatchpoints checks all watchpoints and returns the first that has changed.
// NOTE: this uses value change detection, not true read/write tracking;
// the Type field is currently not enforced.
func (wm *WatchpointManager) CheckWatchpoints(machine *vm.VM) (*Watchpoint, bool) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for _, wp := range wm.watchpoints {
		if !wp.Enabled {
			continue
		}

		var currentValue int
		var err error

		if wp.IsRegister {
			currentValue, err = registerValue(machine, wp.Register)
		} else {
			currentValue, err = slotValue(machine, wp.Address)
		}
		if err != nil {
			continue
		}

		if currentValue != wp.LastValue {
			wp.HitCount++
			wp.LastValue = currentValue
			return wp, true
		}
	}

	return nil, false
}

// InitializeWatchpoint initializes the last value for a watchpoint
func (wm *WatchpointManager) InitializeWatchpoint(id int, machine *vm.VM) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}

	var value int
	var err error
	if wp.IsRegister {
		value, err = registerValue(machine, wp.Register)
	} else {
		value, err = slotValue(machine, wp.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize watchpoint: %w", err)
	}
	wp.LastValue = value
	return nil
}

// Clear removes all watchpoints
func (wm *WatchpointManager) Clear() {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wm.watchpoints = make(map[int]*Watchpoint)
}

// Count returns the number of watchpoints
func (wm *WatchpointManager) Count() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	return len(wm.watchpoints)
}
