package dto

type IssueTokenRequest struct {
	Address string `json:"address"`
}

type CreateTransactionRequest struct {
	Amount int64 `json:"amount"` // nano units, deposited into escrow
}

type DepositRequest struct {
	Amount int64 `json:"amount"` // nano units credited to the caller
}

type SubmitAttestationRequest struct {
	Hash string `json:"hash"`
	Pass bool   `json:"pass"`
}

type MediatorResolveRequest struct {
	Hash string `json:"hash"`
	Pass bool   `json:"pass"`
}
