// internal/service/payment/infrastructure/rule/cel_rule_engine.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/bekapono/shopping-cart/internal/service/payment/domain"
)

// CELRuleEngine 是 domain.RuleEngine 的 CEL 实现。
// 规则定义是一个返回 bool 的 CEL 表达式，可用变量为 amount (int) 与 customer_id (string)。
// 编译结果按表达式缓存。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.IntType),
		cel.Variable("customer_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &CELRuleEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

// Compile 校验规则，启动时调用可以让错误的配置尽早失败
func (e *CELRuleEngine) Compile(ruleDefinition string) error {
	_, err := e.program(ruleDefinition)
	return err
}

// Evaluate 实现了 domain.RuleEngine 接口。
func (e *CELRuleEngine) Evaluate(ruleDefinition string, fact domain.Fact) (bool, error) {
	prg, err := e.program(ruleDefinition)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"amount":      fact.Amount,
		"customer_id": fact.CustomerID,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate rule %q: %w", ruleDefinition, err)
	}
	hit, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q must evaluate to bool, got %T", ruleDefinition, out.Value())
	}
	return hit, nil
}

func (e *CELRuleEngine) program(ruleDefinition string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[ruleDefinition]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(ruleDefinition)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile rule %q: %w", ruleDefinition, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule %q must evaluate to bool, got %s", ruleDefinition, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program for rule %q: %w", ruleDefinition, err)
	}

	e.mu.Lock()
	e.programs[ruleDefinition] = prg
	e.mu.Unlock()
	return prg, nil
}
