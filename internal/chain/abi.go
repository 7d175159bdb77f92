package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI fragments for the two deployed contracts. The JobFactory deploys one
// JobEscrow per job; the escrow exposes the full lifecycle surface.

const jobEscrowABIJSON = `[
	{"type":"function","name":"fundEscrow","stateMutability":"payable","inputs":[{"name":"platformFeePercent","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"assignFreelancer","stateMutability":"nonpayable","inputs":[{"name":"freelancer","type":"address"}],"outputs":[]},
	{"type":"function","name":"submitWork","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"approveWork","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"initiateDispute","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"releaseFundsToFreelancer","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"refundToClient","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"cancelAndRefund","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"getJobDetails","stateMutability":"view","inputs":[],"outputs":[
		{"name":"client","type":"address"},
		{"name":"freelancer","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"platformFee","type":"uint256"},
		{"name":"freelancerAmount","type":"uint256"},
		{"name":"status","type":"uint8"},
		{"name":"jobId","type":"string"},
		{"name":"jobTitle","type":"string"}]},
	{"type":"function","name":"workSubmittedAt","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approvalTimeout","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"arbitrator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getBalance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const jobFactoryABIJSON = `[
	{"type":"function","name":"createJob","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"string"},{"name":"jobTitle","type":"string"}],"outputs":[]},
	{"type":"function","name":"getJobContract","stateMutability":"view","inputs":[{"name":"jobId","type":"string"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"JobCreated","anonymous":false,"inputs":[
		{"name":"jobId","type":"string","indexed":false},
		{"name":"escrowContract","type":"address","indexed":false},
		{"name":"client","type":"address","indexed":false}]}
]`

var (
	jobEscrowABI  = mustParseABI(jobEscrowABIJSON)
	jobFactoryABI = mustParseABI(jobFactoryABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
