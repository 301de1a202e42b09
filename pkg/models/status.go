package models

// Workspace lifecycle statuses.
const (
	WorkspaceActive   = "active"
	WorkspaceArchived = "archived"
	WorkspaceError    = "error"
)

// Node kinds.
const (
	KindPlanning  = "planning"
	KindExecution = "execution"
)

// Node statuses. Planning nodes move through pending, planning, monitoring,
// completed, cancelled; execution nodes through pending, implementing,
// validating, completed, failed, cancelled.
const (
	StatusPending      = "pending"
	StatusPlanning     = "planning"
	StatusMonitoring   = "monitoring"
	StatusImplementing = "implementing"
	StatusValidating   = "validating"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
	StatusCancelled    = "cancelled"
)

// Node role tags.
const (
	RoleInfoCollection = "info_collection"
	RoleValidation     = "validation"
	RoleSummary        = "summary"
)

// Actor tags on log entries.
const (
	ActorHuman     = "human"
	ActorAutomated = "automated"
	ActorSystem    = "system"
)

// Reference statuses and kinds.
const (
	RefActive   = "active"
	RefExpired  = "expired"
	RefNode     = "node"
	RefDocument = "document"
)

// Dispatch modes and per-node dispatch statuses.
const (
	DispatchModeGit  = "git"
	DispatchModeNone = "none"

	DispatchExecuting = "executing"
	DispatchPassed    = "passed"
	DispatchFailed    = "failed"
)

// Merge strategies offered when git-mode dispatch is turned off.
const (
	MergeSequential = "sequential"
	MergeSquash     = "squash"
	MergeCherryPick = "cherry-pick"
	MergeSkip       = "skip"
)

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultContextLogLimit     = 20
	DefaultSSEChannelBuffer    = 256
	DefaultToolContextLogLimit = 10
)
