package core

import "roadmapcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Operation          = domain.Operation
	ActiveFlag         = domain.ActiveFlag
	Base               = domain.Base
	ProductFeature     = domain.ProductFeature
	Capability         = domain.Capability
	TechnicalFunction  = domain.TechnicalFunction
	Change             = domain.Change
	Finding            = domain.Finding
	FindingSeverity    = domain.FindingSeverity
	Report             = domain.Report
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Metadata           = domain.Metadata
	Record             = domain.Record
	Document           = domain.Document
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityProductFeature    = domain.EntityProductFeature
	EntityCapability        = domain.EntityCapability
	EntityTechnicalFunction = domain.EntityTechnicalFunction
)

const (
	OperationCreate = domain.OperationCreate
	OperationUpdate = domain.OperationUpdate
	OperationDelete = domain.OperationDelete
)

const (
	SeverityInfo  = domain.SeverityInfo
	SeverityWarn  = domain.SeverityWarn
	SeverityBlock = domain.SeverityBlock
)

// NewRulesEngine returns an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
