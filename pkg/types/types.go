// Package types defines the public domain types for the Standby DR failover orchestrator.
package types

import "time"

// Direction indicates which way an execution moves traffic.
type Direction string

// Direction values.
const (
	DirectionFailover Direction = "FAILOVER"
	DirectionFailback Direction = "FAILBACK"
)

// Phase is a state of the failover/failback state machine.
type Phase string

// Phase values enumerate every state of the DR state machine. The failback
// phases mirror the failover action steps in reverse order.
const (
	PhaseNormal             Phase = "NORMAL"
	PhaseDetecting          Phase = "DETECTING"
	PhaseValidatingTrigger  Phase = "VALIDATING_TRIGGER"
	PhasePromotingDatabase  Phase = "PROMOTING_DATABASE"
	PhaseScalingCompute     Phase = "SCALING_COMPUTE"
	PhaseCuttingOverDNS     Phase = "CUTTING_OVER_DNS"
	PhaseValidatingFailover Phase = "VALIDATING_FAILOVER"
	PhaseFailedOver         Phase = "FAILED_OVER"
	PhaseFailoverFailed     Phase = "FAILOVER_FAILED"

	PhaseRevertingDNS       Phase = "REVERTING_DNS"
	PhaseScalingDownCompute Phase = "SCALING_DOWN_COMPUTE"
	PhaseDemotingDatabase   Phase = "DEMOTING_DATABASE"
	PhaseValidatingFailback Phase = "VALIDATING_FAILBACK"
	PhaseFailbackFailed     Phase = "FAILBACK_FAILED"

	PhaseAborted Phase = "ABORTED"
)

// ActionStatus represents the outcome of one executor invocation.
type ActionStatus string

// ActionStatus values.
const (
	ActionPending   ActionStatus = "PENDING"
	ActionSucceeded ActionStatus = "SUCCEEDED"
	ActionFailed    ActionStatus = "FAILED"
	ActionTimedOut  ActionStatus = "TIMED_OUT"
)

// FailureKind classifies why an action failed.
type FailureKind string

// FailureKind values. FailureConflict means the resource is already in the
// target state and is treated as success on resume.
const (
	FailureTransient    FailureKind = "TRANSIENT"
	FailureConflict     FailureKind = "CONFLICT"
	FailurePrecondition FailureKind = "PRECONDITION"
	FailureUnknown      FailureKind = "UNKNOWN"
)

// HealthStatus is a binary health verdict for a region.
type HealthStatus string

// HealthStatus values.
const (
	Healthy   HealthStatus = "HEALTHY"
	Unhealthy HealthStatus = "UNHEALTHY"
)

// Posture is the durable steady state of the deployment between executions.
type Posture string

// Posture values. Failback is only accepted while FAILED_OVER.
const (
	PostureActivePrimary Posture = "ACTIVE_PRIMARY"
	PostureFailedOver    Posture = "FAILED_OVER"
)

// HealthSignal is one observation of the primary region's health.
// Value type, passed by copy; not persisted long-term.
type HealthSignal struct {
	Region     string       `json:"region"`
	Status     HealthStatus `json:"status"`
	ObservedAt time.Time    `json:"observedAt"`
	Source     string       `json:"source"` // "probe", "alarm", "manual"
}

// ActionResult is the outcome of one Action Executor invocation within an execution.
type ActionResult struct {
	ActionName   string       `json:"actionName"`
	AttemptCount int          `json:"attemptCount"`
	Status       ActionStatus `json:"status"`
	FailureKind  FailureKind  `json:"failureKind,omitempty"`
	ErrorDetail  string       `json:"errorDetail,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
}

// DrExecution is one failover or failback attempt. At most one execution may
// be active (non-terminal) at any time; the state store enforces this with a
// compare-and-set on a single active-execution slot.
type DrExecution struct {
	ExecutionID   string         `json:"executionId"`
	Direction     Direction      `json:"direction"`
	Phase         Phase          `json:"phase"`
	Version       int            `json:"version"`
	TriggerReason string         `json:"triggerReason"`
	StartedAt     time.Time      `json:"startedAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	StepResults   []ActionResult `json:"stepResults,omitempty"`
}

// Result returns the recorded result for an action, or nil.
func (e *DrExecution) Result(actionName string) *ActionResult {
	for i := range e.StepResults {
		if e.StepResults[i].ActionName == actionName {
			return &e.StepResults[i]
		}
	}
	return nil
}

// SetResult records or replaces the result for an action.
func (e *DrExecution) SetResult(r ActionResult) {
	for i := range e.StepResults {
		if e.StepResults[i].ActionName == r.ActionName {
			e.StepResults[i] = r
			return
		}
	}
	e.StepResults = append(e.StepResults, r)
}

// EventKind classifies an audit event.
type EventKind string

// EventKind values enumerate the categories of recorded events.
const (
	EventExecutionStarted   EventKind = "EXECUTION_STARTED"
	EventExecutionResumed   EventKind = "EXECUTION_RESUMED"
	EventExecutionCompleted EventKind = "EXECUTION_COMPLETED"
	EventExecutionFailed    EventKind = "EXECUTION_FAILED"
	EventExecutionAborted   EventKind = "EXECUTION_ABORTED"
	EventPhaseChanged       EventKind = "PHASE_CHANGED"
	EventActionStarted      EventKind = "ACTION_STARTED"
	EventActionCompleted    EventKind = "ACTION_COMPLETED"
	EventActionSkipped      EventKind = "ACTION_SKIPPED"
	EventRetryScheduled     EventKind = "RETRY_SCHEDULED"
	EventValidationPassed   EventKind = "VALIDATION_PASSED"
	EventValidationFailed   EventKind = "VALIDATION_FAILED"
	EventDuplicateTrigger   EventKind = "DUPLICATE_TRIGGER"
	EventHealthSignal       EventKind = "HEALTH_SIGNAL"
	EventDebounceTripped    EventKind = "DEBOUNCE_TRIPPED"
	EventAwaitingApproval   EventKind = "AWAITING_APPROVAL"
	EventExecutionStuck     EventKind = "EXECUTION_STUCK"
	EventRecoverRequested   EventKind = "RECOVER_REQUESTED"
)

// EventLevel is the severity attached to an event for notification routing.
type EventLevel string

const (
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Event is an append-only audit record. Every phase transition and every
// action result emits one; sinks receive them as line-delimited JSON.
type Event struct {
	Kind        EventKind              `json:"kind"`
	Level       EventLevel             `json:"level,omitempty"`
	ExecutionID string                 `json:"executionId,omitempty"`
	Direction   Direction              `json:"direction,omitempty"`
	Phase       Phase                  `json:"phase,omitempty"`
	Action      string                 `json:"action,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// RetryPolicy configures automatic retry behavior for retryable actions.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"maxAttempts" json:"maxAttempts"`
	BackoffSeconds    int     `yaml:"backoffSeconds" json:"backoffSeconds"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier,omitempty" json:"backoffMultiplier,omitempty"`
}

// TriggerMode controls whether a detected outage proceeds without an operator.
type TriggerMode string

const (
	TriggerAuto   TriggerMode = "auto"
	TriggerManual TriggerMode = "manual"
)

// DetectionConfig configures health monitoring and failover debouncing.
// All thresholds are deliberately configuration, not constants.
type DetectionConfig struct {
	Enabled            bool        `yaml:"enabled" json:"enabled"`
	Mode               TriggerMode `yaml:"mode,omitempty" json:"mode,omitempty"` // default auto
	Interval           string      `yaml:"interval,omitempty" json:"interval,omitempty"`
	ProbeURL           string      `yaml:"probeUrl,omitempty" json:"probeUrl,omitempty"`
	ProbeTimeout       string      `yaml:"probeTimeout,omitempty" json:"probeTimeout,omitempty"`
	AlarmName          string      `yaml:"alarmName,omitempty" json:"alarmName,omitempty"`
	PrimaryRegion      string      `yaml:"primaryRegion" json:"primaryRegion"`
	UnhealthyThreshold int         `yaml:"unhealthyThreshold,omitempty" json:"unhealthyThreshold,omitempty"` // consecutive signals, default 3
	Window             string      `yaml:"window,omitempty" json:"window,omitempty"`                         // default "5m"
	QueueDepth         int         `yaml:"queueDepth,omitempty" json:"queueDepth,omitempty"`
}

// DatabaseConfig configures the database promoter.
type DatabaseConfig struct {
	ReplicaID string `yaml:"replicaId" json:"replicaId"`
	// FailbackReplicaID is the replica rebuilt in the original primary
	// region after recovery; failback promotes it to return the write role.
	FailbackReplicaID    string `yaml:"failbackReplicaId,omitempty" json:"failbackReplicaId,omitempty"`
	Region               string `yaml:"region" json:"region"`
	MaxReplicaLagSeconds int    `yaml:"maxReplicaLagSeconds,omitempty" json:"maxReplicaLagSeconds,omitempty"`
	PromotionTimeout     string `yaml:"promotionTimeout,omitempty" json:"promotionTimeout,omitempty"`
	PollInterval         string `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
}

// ComputeConfig configures the compute scaler.
type ComputeConfig struct {
	ASGName            string  `yaml:"asgName" json:"asgName"`
	Region             string  `yaml:"region" json:"region"`
	TargetCapacity     int     `yaml:"targetCapacity" json:"targetCapacity"`
	PilotCapacity      int     `yaml:"pilotCapacity,omitempty" json:"pilotCapacity,omitempty"` // failback scale-down target
	MinHealthyFraction float64 `yaml:"minHealthyFraction,omitempty" json:"minHealthyFraction,omitempty"`
	ScaleTimeout       string  `yaml:"scaleTimeout,omitempty" json:"scaleTimeout,omitempty"`
	PollInterval       string  `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
}

// DNSConfig configures the DNS cutover.
type DNSConfig struct {
	HostedZoneID  string `yaml:"hostedZoneId" json:"hostedZoneId"`
	RecordName    string `yaml:"recordName" json:"recordName"`
	RecordType    string `yaml:"recordType,omitempty" json:"recordType,omitempty"` // default CNAME
	PrimaryTarget string `yaml:"primaryTarget" json:"primaryTarget"`
	StandbyTarget string `yaml:"standbyTarget" json:"standbyTarget"`
	TTL           int64  `yaml:"ttl,omitempty" json:"ttl,omitempty"`
	ChangeTimeout string `yaml:"changeTimeout,omitempty" json:"changeTimeout,omitempty"`
	PollInterval  string `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`
}

// ValidationConfig configures the validation gate.
type ValidationConfig struct {
	Checks         []string `yaml:"checks,omitempty" json:"checks,omitempty"` // endpoint, capacity, database, lambda
	EndpointURL    string   `yaml:"endpointUrl,omitempty" json:"endpointUrl,omitempty"`
	LambdaFunction string   `yaml:"lambdaFunction,omitempty" json:"lambdaFunction,omitempty"`
	MaxAttempts    int      `yaml:"maxAttempts,omitempty" json:"maxAttempts,omitempty"`
	Interval       string   `yaml:"interval,omitempty" json:"interval,omitempty"`
	CheckTimeout   string   `yaml:"checkTimeout,omitempty" json:"checkTimeout,omitempty"`
}

// NotificationType identifies a notification sink backend.
type NotificationType string

// NotificationType values.
const (
	NotifyConsole        NotificationType = "console"
	NotifyFile           NotificationType = "file"
	NotifyWebhook        NotificationType = "webhook"
	NotifySNS            NotificationType = "sns"
	NotifySQS            NotificationType = "sqs"
	NotifyEventBridge    NotificationType = "eventbridge"
	NotifyCloudWatchLogs NotificationType = "cloudwatchlogs"
)

// NotificationConfig defines one notification sink.
type NotificationConfig struct {
	Type      NotificationType `yaml:"type" json:"type"`
	URL       string           `yaml:"url,omitempty" json:"url,omitempty"`
	Path      string           `yaml:"path,omitempty" json:"path,omitempty"`
	TopicARN  string           `yaml:"topicArn,omitempty" json:"topicArn,omitempty"`
	QueueURL  string           `yaml:"queueUrl,omitempty" json:"queueUrl,omitempty"`
	EventBus  string           `yaml:"eventBus,omitempty" json:"eventBus,omitempty"`
	LogGroup  string           `yaml:"logGroup,omitempty" json:"logGroup,omitempty"`
	LogStream string           `yaml:"logStream,omitempty" json:"logStream,omitempty"`
}

// DynamoDBConfig holds DynamoDB connection and table settings for the state store.
type DynamoDBConfig struct {
	TableName    string `yaml:"tableName" json:"tableName"`
	Region       string `yaml:"region" json:"region"`
	Endpoint     string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	RetentionTTL string `yaml:"retentionTtl,omitempty" json:"retentionTtl,omitempty"`
	CreateTable  bool   `yaml:"createTable,omitempty" json:"createTable,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string `yaml:"addr,omitempty" json:"addr,omitempty"`
	APIKey          string `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	APIKeySecretARN string `yaml:"apiKeySecretArn,omitempty" json:"apiKeySecretArn,omitempty"`
	MaxRequestBody  int64  `yaml:"maxRequestBody,omitempty" json:"maxRequestBody,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	ServiceName  string `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// WatchdogConfig configures stuck-execution detection.
type WatchdogConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	Interval       string `yaml:"interval,omitempty" json:"interval,omitempty"`
	StuckThreshold string `yaml:"stuckThreshold,omitempty" json:"stuckThreshold,omitempty"`
}

// ProjectConfig represents the top-level standby.yaml configuration.
type ProjectConfig struct {
	Provider      string               `yaml:"provider"` // "dynamodb" or "memory"
	DynamoDB      *DynamoDBConfig      `yaml:"dynamodb,omitempty"`
	Server        *ServerConfig        `yaml:"server,omitempty"`
	Detection     DetectionConfig      `yaml:"detection"`
	Database      DatabaseConfig       `yaml:"database"`
	Compute       ComputeConfig        `yaml:"compute"`
	DNS           DNSConfig            `yaml:"dns"`
	Validation    ValidationConfig     `yaml:"validation"`
	Retry         *RetryPolicy         `yaml:"retry,omitempty"`
	Notifications []NotificationConfig `yaml:"notifications,omitempty"`
	Telemetry     *TelemetryConfig     `yaml:"telemetry,omitempty"`
	Watchdog      *WatchdogConfig      `yaml:"watchdog,omitempty"`
}
