package email

import "fmt"

// Subjects and bodies for the transactional messages this platform sends.
// Kept as plain Go rather than template files: the set is small and the
// variables are few.

func CompletionCodeSubject() string { return "Your job completion code" }

func CompletionCodeBody(customerName, code string, validMinutes int) string {
	return fmt.Sprintf(
		`<p>Dear %s,</p>
<p>Your technician has marked the work as finished. Share the code below with them to confirm completion:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p>
<p>The code is valid for %d minutes and can be used once.</p>`,
		customerName, code, validMinutes)
}

func SoftLockSubject() string { return "A technician wants your job" }

func SoftLockBody(technicianName string, priceCents int64) string {
	return fmt.Sprintf(
		`<p>%s has accepted your job at &euro;%.2f.</p>
<p>Confirm the assignment before the reservation expires, or the job reopens automatically.</p>`,
		technicianName, float64(priceCents)/100)
}

func AssignedSubject() string { return "Job assigned" }

func AssignedBody(customerName string, priceCents int64) string {
	return fmt.Sprintf(
		`<p>You are confirmed for the job at %s. The price is locked at &euro;%.2f.</p>`,
		customerName, float64(priceCents)/100)
}

func CompletionPendingSubject() string { return "Completion awaiting your approval" }

func CompletionPendingBody() string {
	return `<p>The customer confirmed the work on your job. Review and approve the completion to release payment.</p>`
}

func CompletedSubject() string { return "Job completed and approved" }

func CompletedBody(priceCents int64) string {
	return fmt.Sprintf(
		`<p>The dealer approved the completion. Your share of &euro;%.2f is being settled.</p>`,
		float64(priceCents)/100*0.90)
}

func TrustBandDropSubject() string { return "Your account standing changed" }

func TrustBandDropBody(newStatus string) string {
	return fmt.Sprintf(
		`<p>Your trust standing moved to <strong>%s</strong>. Repeated complaints, disputes or late completions lower it; completed and verified jobs raise it.</p>`,
		newStatus)
}
