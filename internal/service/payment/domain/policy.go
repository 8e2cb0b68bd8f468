// internal/service/payment/domain/policy.go
package domain

import (
	"errors"
	"fmt"
)

// DefaultDeclineRule 金额超过 $1000.00 (单位为分) 的授权被拒绝
const DefaultDeclineRule = "amount > 100000"

var ErrInvalidRequest = errors.New("invalid authorization request")

// Fact 是交给规则引擎评估的事实，字段名即表达式中的变量名
type Fact struct {
	Amount     int64  `json:"amount"`
	CustomerID string `json:"customer_id"`
}

func (f Fact) Validate() error {
	if f.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative, got %d", ErrInvalidRequest, f.Amount)
	}
	if f.CustomerID == "" {
		return fmt.Errorf("%w: customer_id is required", ErrInvalidRequest)
	}
	return nil
}

// RuleEngine 评估一条规则定义是否命中给定事实
type RuleEngine interface {
	Evaluate(ruleDefinition string, fact Fact) (bool, error)
}

// DeclinePolicy 是支付授权的拒绝策略：规则命中即拒绝
type DeclinePolicy struct {
	Rule   string
	Engine RuleEngine
}

// Decide 返回是否批准以及拒绝原因
func (p DeclinePolicy) Decide(fact Fact) (approved bool, reason string, err error) {
	hit, err := p.Engine.Evaluate(p.Rule, fact)
	if err != nil {
		return false, "", err
	}
	if hit {
		return false, fmt.Sprintf("declined by policy %q", p.Rule), nil
	}
	return true, "", nil
}
