package cache

import "fmt"

// JobKeyPattern matches every job record.
const JobKeyPattern = "job:*"

func JobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
