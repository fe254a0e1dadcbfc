package core

import "growvertising/pkg/domain"

type (
	EntityType         = domain.EntityType
	PlantStage         = domain.PlantStage
	Species            = domain.Species
	Severity           = domain.Severity
	Base               = domain.Base
	Plant              = domain.Plant
	HarvestRecord      = domain.HarvestRecord
	Upload             = domain.Upload
	Comment            = domain.Comment
	Campaign           = domain.Campaign
	EngagementCounters = domain.EngagementCounters
	Role               = domain.Role
	View               = domain.View
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	SessionStore       = domain.SessionStore
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityPlant    = domain.EntityPlant
	EntityHarvest  = domain.EntityHarvest
	EntityUpload   = domain.EntityUpload
	EntityComment  = domain.EntityComment
	EntityCampaign = domain.EntityCampaign
)

const (
	StageGrowing   = domain.StageGrowing
	StageHarvested = domain.StageHarvested
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine re-exports the domain constructor for core consumers.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
