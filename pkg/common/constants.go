package common

const (
	RedisStreamDigestDispatch = "digest.dispatch"

	RedisStreamGroup    = "dispatch-group"
	RedisStreamConsumer = "dispatch-consumer"
)
