package domain

// Sale record statuses as persisted in the ledger snapshot.
const (
	SaleStatusProcessing = "Processing"
	SaleStatusSuccessful = "Successful"
	SaleStatusReject     = "Reject"
)

// In-flight sale request states. HoldCredited and the terminal states
// are not listed: once the hold is credited the request is cleared and
// the SaleRecord status carries the lifecycle.
const (
	SaleStateCountrySelected = "country_selected"
	SaleStatePendingApproval = "pending_approval"
	SaleStateAwaitingCode    = "awaiting_code"
	SaleStateCodeSubmitted   = "code_submitted"
)

// Operator decision kinds.
const (
	DecisionApproveSale        = "approve_sale"
	DecisionRejectSale         = "reject_sale"
	DecisionRejectSaleMessage  = "reject_sale_message"
	DecisionConfirmCode        = "confirm_code"
	DecisionWrongCode          = "wrong_code"
	DecisionFinalApprove       = "final_approve"
	DecisionFinalReject        = "final_reject"
	DecisionFinalRejectMessage = "final_reject_message"
)

// Balance pools an operator can adjust directly.
const (
	PoolMain                 = "main"
	PoolHold                 = "hold"
	PoolTopup                = "topup"
	PoolWithdrawalProcessing = "withdrawal_processing"
)

// Withdrawal session states.
const (
	WithdrawStateAwaitingAddress = "awaiting_address"
	WithdrawStateAwaitingAmount  = "awaiting_amount"
)
