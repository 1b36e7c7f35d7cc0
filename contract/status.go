package contract

import "github.com/veridata-labs/marketplace-broker/common/errors"

var requestStatusNames = [...]string{"OPEN", "CLOSED"}

var submissionStatusNames = [...]string{"PENDING", "APPROVED", "REJECTED", "PAID", "REFUNDED"}

// RequestStatusName decodes the on-chain request status enum.
func RequestStatusName(status uint8) (string, error) {
	if int(status) >= len(requestStatusNames) {
		return "", errors.Errorf("unknown request status %d", status)
	}
	return requestStatusNames[status], nil
}

// SubmissionStatusName decodes the on-chain submission status enum.
func SubmissionStatusName(status uint8) (string, error) {
	if int(status) >= len(submissionStatusNames) {
		return "", errors.Errorf("unknown submission status %d", status)
	}
	return submissionStatusNames[status], nil
}
