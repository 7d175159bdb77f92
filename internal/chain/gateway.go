package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/jobmate/backend/internal/escrow"
)

// Gateway is the only component that talks to the ledger. Reads are plain
// eth_call round trips and safe to repeat; writes submit a transaction and
// return only after it is mined, mapping contract reverts to the escrow error
// taxonomy. There is no pending-transaction cache: a dropped transaction is
// simply re-issued after re-reading state.
type Gateway struct {
	backend        Backend
	chainID        *big.Int
	factory        *bind.BoundContract
	factoryAddr    common.Address
	confirmTimeout time.Duration
	log            *zap.Logger
}

// NewGateway wires a gateway against a factory contract. confirmTimeout bounds
// how long a write waits for its transaction to mine; zero means wait until
// the caller's context expires.
func NewGateway(backend Backend, chainID *big.Int, factoryAddr common.Address, confirmTimeout time.Duration, log *zap.Logger) *Gateway {
	return &Gateway{
		backend:        backend,
		chainID:        chainID,
		factory:        bind.NewBoundContract(factoryAddr, jobFactoryABI, backend, backend, backend),
		factoryAddr:    factoryAddr,
		confirmTimeout: confirmTimeout,
		log:            log,
	}
}

func (g *Gateway) escrowAt(addr common.Address) *bind.BoundContract {
	return bind.NewBoundContract(addr, jobEscrowABI, g.backend, g.backend, g.backend)
}

// --- reads ---

// JobSnapshot fetches the full authoritative escrow state: details, dispute
// timers and arbitrator in one pass.
func (g *Gateway) JobSnapshot(ctx context.Context, contractAddr common.Address) (*escrow.Job, error) {
	opts := &bind.CallOpts{Context: ctx}
	esc := g.escrowAt(contractAddr)

	var details []interface{}
	if err := esc.Call(opts, &details, "getJobDetails"); err != nil {
		return nil, fmt.Errorf("getJobDetails %s: %w", contractAddr.Hex(), err)
	}
	if len(details) != 8 {
		return nil, fmt.Errorf("getJobDetails %s: unexpected output arity %d", contractAddr.Hex(), len(details))
	}

	submittedAt, timeout, err := g.DisputeTimers(ctx, contractAddr)
	if err != nil {
		return nil, err
	}
	arbitrator, err := g.Arbitrator(ctx, contractAddr)
	if err != nil {
		return nil, err
	}

	job := &escrow.Job{
		Contract:         contractAddr,
		Client:           details[0].(common.Address),
		Freelancer:       details[1].(common.Address),
		Arbitrator:       arbitrator,
		Amount:           details[2].(*big.Int),
		PlatformFee:      details[3].(*big.Int),
		FreelancerAmount: details[4].(*big.Int),
		Status:           escrow.Status(details[5].(uint8)),
		JobID:            details[6].(string),
		Title:            details[7].(string),
		WorkSubmittedAt:  submittedAt,
		ApprovalTimeout:  timeout,
	}
	if !job.Status.Valid() {
		return nil, fmt.Errorf("contract %s reports unknown status %d", contractAddr.Hex(), int(job.Status))
	}
	return job, nil
}

// DisputeTimers returns (workSubmittedAt, approvalTimeout) in epoch seconds.
func (g *Gateway) DisputeTimers(ctx context.Context, contractAddr common.Address) (int64, int64, error) {
	opts := &bind.CallOpts{Context: ctx}
	esc := g.escrowAt(contractAddr)

	var submittedOut []interface{}
	if err := esc.Call(opts, &submittedOut, "workSubmittedAt"); err != nil {
		return 0, 0, fmt.Errorf("workSubmittedAt %s: %w", contractAddr.Hex(), err)
	}
	submittedAt := submittedOut[0].(*big.Int).Int64()

	var timeoutOut []interface{}
	if err := esc.Call(opts, &timeoutOut, "approvalTimeout"); err != nil {
		return 0, 0, fmt.Errorf("approvalTimeout %s: %w", contractAddr.Hex(), err)
	}
	timeout := timeoutOut[0].(*big.Int).Int64()

	return submittedAt, timeout, nil
}

func (g *Gateway) Arbitrator(ctx context.Context, contractAddr common.Address) (common.Address, error) {
	var out []interface{}
	if err := g.escrowAt(contractAddr).Call(&bind.CallOpts{Context: ctx}, &out, "arbitrator"); err != nil {
		return common.Address{}, fmt.Errorf("arbitrator %s: %w", contractAddr.Hex(), err)
	}
	return out[0].(common.Address), nil
}

func (g *Gateway) EscrowBalance(ctx context.Context, contractAddr common.Address) (*big.Int, error) {
	var out []interface{}
	if err := g.escrowAt(contractAddr).Call(&bind.CallOpts{Context: ctx}, &out, "getBalance"); err != nil {
		return nil, fmt.Errorf("getBalance %s: %w", contractAddr.Hex(), err)
	}
	return out[0].(*big.Int), nil
}

// JobContract looks up the escrow address the factory deployed for a job.
// The zero address means no escrow exists yet.
func (g *Gateway) JobContract(ctx context.Context, jobID string) (common.Address, error) {
	var out []interface{}
	if err := g.factory.Call(&bind.CallOpts{Context: ctx}, &out, "getJobContract", jobID); err != nil {
		return common.Address{}, fmt.Errorf("getJobContract %q: %w", jobID, err)
	}
	return out[0].(common.Address), nil
}

// --- writes ---

// CreateJob deploys a fresh escrow through the factory and returns its
// address, parsed from the JobCreated log.
func (g *Gateway) CreateJob(ctx context.Context, signer *Signer, jobID, title string) (common.Address, error) {
	receipt, err := g.transact(ctx, signer, g.factory, nil, "createJob", jobID, title)
	if err != nil {
		return common.Address{}, err
	}

	eventID := jobFactoryABI.Events["JobCreated"].ID
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != g.factoryAddr {
			continue
		}
		if len(lg.Topics) == 0 || lg.Topics[0] != eventID {
			continue
		}
		vals, err := jobFactoryABI.Unpack("JobCreated", lg.Data)
		if err != nil {
			return common.Address{}, fmt.Errorf("decode JobCreated: %w", err)
		}
		return vals[1].(common.Address), nil
	}
	return common.Address{}, fmt.Errorf("createJob %q: no JobCreated event in receipt", jobID)
}

// Fund locks value into the escrow. feePercent is forwarded so the contract
// computes the authoritative split itself.
func (g *Gateway) Fund(ctx context.Context, signer *Signer, contractAddr common.Address, feePercent int64, value *big.Int) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), value, "fundEscrow", big.NewInt(feePercent))
	return err
}

func (g *Gateway) AssignFreelancer(ctx context.Context, signer *Signer, contractAddr, freelancer common.Address) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), nil, "assignFreelancer", freelancer)
	return err
}

func (g *Gateway) SubmitWork(ctx context.Context, signer *Signer, contractAddr common.Address) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), nil, "submitWork")
	return err
}

func (g *Gateway) ApproveWork(ctx context.Context, signer *Signer, contractAddr common.Address) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), nil, "approveWork")
	return err
}

func (g *Gateway) InitiateDispute(ctx context.Context, signer *Signer, contractAddr common.Address) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), nil, "initiateDispute")
	return err
}

func (g *Gateway) ReleaseFundsToFreelancer(ctx context.Context, signer *Signer, contractAddr common.Address) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), nil, "releaseFundsToFreelancer")
	return err
}

func (g *Gateway) RefundToClient(ctx context.Context, signer *Signer, contractAddr common.Address) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), nil, "refundToClient")
	return err
}

func (g *Gateway) CancelAndRefund(ctx context.Context, signer *Signer, contractAddr common.Address) error {
	_, err := g.transact(ctx, signer, g.escrowAt(contractAddr), nil, "cancelAndRefund")
	return err
}

// transact submits one contract write and blocks until it is mined. From the
// caller's point of view the write either fully confirms or fails with state
// unchanged; cancelling ctx abandons the wait without keeping any local
// pending marker.
func (g *Gateway) transact(
	ctx context.Context,
	signer *Signer,
	contract *bind.BoundContract,
	value *big.Int,
	method string,
	args ...interface{},
) (*gethtypes.Receipt, error) {
	if signer == nil {
		return nil, &escrow.ConnectivityError{Reason: "no signer for caller wallet"}
	}

	opts, err := signer.TransactOpts(ctx, g.chainID)
	if err != nil {
		return nil, &escrow.ConnectivityError{Reason: err.Error()}
	}
	opts.Value = value

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		// Most nodes reject a reverting call at gas estimation, before
		// anything is broadcast.
		if reason, ok := revertReason(err); ok {
			return nil, escrow.NewChainRevert(reason)
		}
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	waitCtx, cancel := g.confirmCtx(ctx)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, g.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", method, err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		reason := g.replayForRevert(ctx, signer.Address(), tx, receipt.BlockNumber)
		g.log.Warn("transaction reverted on-chain",
			zap.String("method", method),
			zap.String("tx", tx.Hash().Hex()),
			zap.String("reason", reason),
		)
		return nil, escrow.NewChainRevert(reason)
	}

	g.log.Info("transaction confirmed",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
	)
	return receipt, nil
}

// confirmCtx caps the mining wait so a transaction stuck in the mempool
// cannot hold a request open indefinitely.
func (g *Gateway) confirmCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.confirmTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.confirmTimeout)
}

// replayForRevert re-executes a mined-but-failed transaction as a call at its
// own block to recover the revert reason string.
func (g *Gateway) replayForRevert(ctx context.Context, from common.Address, tx *gethtypes.Transaction, block *big.Int) string {
	msg := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	if _, err := g.backend.CallContract(ctx, msg, block); err != nil {
		if reason, ok := revertReason(err); ok {
			return reason
		}
		return err.Error()
	}
	return "transaction failed without revert reason"
}

// revertReason extracts a solidity revert string from a node error, either
// from structured rpc error data or from the conventional message format.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if reason, uerr := abi.UnpackRevert(common.FromHex(hexData)); uerr == nil {
				return reason, true
			}
		}
	}

	msg := err.Error()
	const marker = "execution reverted"
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(marker):], ":"))
	return rest, true
}
