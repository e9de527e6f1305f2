package auth

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

//go:embed policy.rego
var policy string

// Request is the policy input for one API call.
type Request struct {
	Method   string
	Resource string
	Identity Identity
}

type Authorizer struct {
	query rego.PreparedEvalQuery
}

// NewAuthorizer compiles the embedded policy once.
func NewAuthorizer(ctx context.Context) (*Authorizer, error) {
	return newAuthorizer(ctx, policy)
}

func newAuthorizer(ctx context.Context, module string) (*Authorizer, error) {
	q, err := rego.New(
		rego.Query("data.railway.authz.allow"),
		rego.Module("policy.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &Authorizer{query: q}, nil
}

func (a *Authorizer) Allow(ctx context.Context, req Request) (bool, error) {
	input := map[string]interface{}{
		"method":   req.Method,
		"resource": req.Resource,
		"identity": map[string]interface{}{
			"authenticated": req.Identity.Authenticated(),
			"staff":         req.Identity.IsStaff,
			"user_id":       req.Identity.UserID,
		},
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluate policy: %w", err)
	}
	return rs.Allowed(), nil
}
