package gen

// LinkID and MonitorID are opaque handles returned by the link/monitor
// fabric. They are plain strings (allocated by internal/idalloc) rather than
// structs so that linkmonitor, which must not import gen's process types,
// and genserver, which consumes them, share one definition without a cycle.
type LinkID string

// MonitorID identifies one monitor relationship; Demonitor accepts it back.
type MonitorID string

// TimerID identifies one pending SendAfter or GenStateMachine timeout.
type TimerID string
