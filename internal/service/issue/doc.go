// Package issue implements the newsletter issue lifecycle and approval
// workflow.
//
// The service layer contains all business logic for submitting, approving,
// rejecting, scheduling, and completing newsletter issues. Status changes
// are driven by an explicit transition table; every transition is a single
// atomic operation on one issue performed by the repository. The service
// depends on the Repository interface defined in this package and should
// never import from api/.
//
// Repository implementations live in repository/postgres/ and
// repository/memory/.
package issue
