// Package conversation implements the per-conversation menu state machine:
// the store of live conversations, the inactivity scheduler, the stage
// router and the dispatcher that transports feed inbound messages into.
package conversation

// Stage names a position in the menu tree.
type Stage string

const (
	StageStart                        Stage = "inicio"
	StageTerms                        Stage = "terms"
	StageMain                         Stage = "main"
	StageAgentCategory                Stage = "agentCategory"
	StageOrder                        Stage = "order"
	StageAwaitingOrderNumber          Stage = "awaitingOrderNumber"
	StageComplaints                   Stage = "complaints"
	StageAwaitingComplaintDescription Stage = "awaitingComplaintDescription"
	StageAwaitingComplaintNumber      Stage = "awaitingComplaintNumber"
	StageAwaitingReturnNumber         Stage = "awaitingReturnNumber"
	StageAwaitingResume               Stage = "awaitingResume"
	StageWithAgent                    Stage = "WITH_AGENT"
)

// Known reports whether s is one of the defined stages.
func (s Stage) Known() bool {
	switch s {
	case StageStart, StageTerms, StageMain, StageAgentCategory, StageOrder,
		StageAwaitingOrderNumber, StageComplaints, StageAwaitingComplaintDescription,
		StageAwaitingComplaintNumber, StageAwaitingReturnNumber, StageAwaitingResume,
		StageWithAgent:
		return true
	}
	return false
}

// Expires reports whether conversations parked at s are subject to the inactivity timeout.
func (s Stage) Expires() bool {
	return s != StageWithAgent
}

// Category records why a conversation was handed to an agent.
type Category string

const (
	CategoryNone      Category = ""
	CategorySales     Category = "sales"
	CategorySupport   Category = "support"
	CategoryOrder     Category = "order"
	CategoryComplaint Category = "complaint"
	CategoryReturn    Category = "return"
	CategoryResume    Category = "resume"
)

// Reasons a conversation is torn down.
const (
	EndExit          = "exit"
	EndGoodbye       = "goodbye"
	EndTermsRejected = "terms_rejected"
	EndTimeout       = "timeout"
	EndReleased      = "released"
)
