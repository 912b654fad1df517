package packages

import "github.com/ariefcatur/go-warehouse-ops/internal/apperr"

type Status string

const (
	StatusToPack   Status = "TO_PACK"
	StatusPacked   Status = "PACKED"
	StatusToReturn Status = "TO_RETURN"
	StatusReturned Status = "RETURNED"
	StatusError    Status = "ERROR"
)

// OrDefault reads a missing status as TO_PACK.
func (s Status) OrDefault() Status {
	if s == "" {
		return StatusToPack
	}
	return s
}

// Action names double as the CRM sub-paths that perform them.
type Action string

const (
	ActionMarkAsPacked     Action = "markAsPacked"
	ActionReceiveReturn    Action = "receiveReturn"
	ActionSendToExpedition Action = "sendToExpedition"
	ActionFail             Action = "fail"
)

var validNext = map[Status]map[Status]bool{
	StatusToPack:   {StatusPacked: true, StatusError: true},
	StatusPacked:   {StatusError: true},
	StatusToReturn: {StatusReturned: true, StatusError: true},
	StatusReturned: {StatusError: true},
	StatusError:    {StatusToPack: true, StatusError: true},
}

var target = map[Action]Status{
	ActionMarkAsPacked:     StatusPacked,
	ActionReceiveReturn:    StatusReturned,
	ActionSendToExpedition: StatusToPack,
	ActionFail:             StatusError,
}

func CanTransition(from, to Status) bool {
	return validNext[from.OrDefault()][to]
}

// Apply returns p after action, or an InvalidTransitionError when p's status
// does not permit it. p is not modified.
func Apply(p Package, a Action) (Package, error) {
	return apply(p, a, "")
}

// Fail moves p into ERROR from any status.
func Fail(p Package, reason string) Package {
	out, _ := apply(p, ActionFail, reason)
	return out
}

func apply(p Package, a Action, reason string) (Package, error) {
	from := p.Status.OrDefault()
	to, ok := target[a]
	if !ok || !CanTransition(from, to) {
		return p, &apperr.InvalidTransitionError{Entity: "Package", ID: p.ID, Action: string(a), From: string(from)}
	}

	p.Status = to
	switch a {
	case ActionMarkAsPacked:
		p.PackageIssuedFlag = true
	case ActionReceiveReturn:
		p.PackageReceivedFlag = true
	case ActionSendToExpedition:
		p.ErrorMessage = ""
	case ActionFail:
		p.ErrorMessage = reason
	}
	return p, nil
}
