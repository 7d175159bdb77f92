package chain

import (
	"fmt"
	"math/big"
	"strings"
)

const etherDecimals = 18

// ParseEther converts a decimal ETH string (e.g. "1.05") to wei (*big.Int).
// 1 ETH = 10^18 wei.
func ParseEther(ethStr string) (*big.Int, error) {
	ethStr = strings.TrimSpace(ethStr)
	if ethStr == "" {
		return nil, fmt.Errorf("empty ETH amount")
	}

	parts := strings.Split(ethStr, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid ETH amount: %s", ethStr)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}

	if len(frac) > etherDecimals {
		frac = frac[:etherDecimals]
	}
	for len(frac) < etherDecimals {
		frac += "0"
	}

	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid ETH amount: %s", ethStr)
	}
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("negative ETH amount: %s", ethStr)
	}
	return wei, nil
}

// FormatEther renders wei as a decimal ETH string with trailing zeros
// trimmed, matching how amounts are shown and stored off-chain.
func FormatEther(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}

	s := wei.String()
	if len(s) <= etherDecimals {
		s = strings.Repeat("0", etherDecimals-len(s)+1) + s
	}

	cut := len(s) - etherDecimals
	whole, frac := s[:cut], s[cut:]
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// TotalWithFee sizes the funding transaction: salary plus the platform fee
// percentage, rendered with 4 decimal places. This is the pre-funding
// estimate only — the authoritative split is read back from the contract
// after funding.
func TotalWithFee(salary string, feePercent int) (string, error) {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(salary))
	if !ok || rat.Sign() < 0 {
		return "", fmt.Errorf("invalid salary amount: %s", salary)
	}
	factor := new(big.Rat).SetFrac64(int64(100+feePercent), 100)
	return rat.Mul(rat, factor).FloatString(4), nil
}

// EstimateUSD renders an advisory USD figure for an ETH amount at a fixed
// configured rate. Display only.
func EstimateUSD(eth string, usdPerEth float64) string {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(eth))
	if !ok || usdPerEth <= 0 {
		return "0"
	}
	return rat.Mul(rat, new(big.Rat).SetFloat64(usdPerEth)).FloatString(2)
}

// EstimateFromUSD converts a USD budget to an ETH suggestion using a fixed
// configured rate. Advisory only: it pre-fills the funding form and plays no
// part in any guard.
func EstimateFromUSD(usd float64, usdPerEth float64) string {
	if usd <= 0 || usdPerEth <= 0 {
		return "0"
	}
	rat := new(big.Rat).Quo(new(big.Rat).SetFloat64(usd), new(big.Rat).SetFloat64(usdPerEth))
	return rat.FloatString(4)
}
