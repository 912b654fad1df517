package orders

type Status string

const (
	StatusNew             Status = "new"
	StatusInProgress      Status = "in-progress"
	StatusExpeditionError Status = "expedition-error"
	StatusDataError       Status = "data-error"
	StatusSent            Status = "sent"
	StatusReturn          Status = "return"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
)

// validNext is the coarse lifecycle as the shop runs it. The CRM does not
// enforce it, so it is advisory here too.
var validNext = map[Status]map[Status]bool{
	StatusNew:             {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress:      {StatusExpeditionError: true, StatusDataError: true, StatusSent: true, StatusCancelled: true},
	StatusExpeditionError: {StatusReturn: true, StatusDelivered: true, StatusCancelled: true},
	StatusDataError:       {StatusReturn: true, StatusDelivered: true, StatusCancelled: true},
	StatusSent:            {StatusReturn: true, StatusDelivered: true, StatusCancelled: true},
	StatusReturn:          {StatusCancelled: true},
	StatusDelivered:       {StatusCancelled: true},
	StatusCancelled:       {},
}

func (s Status) Known() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
