package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	EventBus        Category = "EventBus"
	Delivery        Category = "Delivery"
	Store           Category = "Store"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	Room            Category = "Room"
)

const (
	Startup      SubCategory = "Startup"
	Shutdown     SubCategory = "Shutdown"
	RateLimiting SubCategory = "RateLimiting"
	Publish      SubCategory = "Publish"
	Overflow     SubCategory = "Overflow"
	SSE          SubCategory = "SSE"
	WebSocket    SubCategory = "WebSocket"
	LongPoll     SubCategory = "LongPoll"
	Mirror       SubCategory = "Mirror"
	Migration    SubCategory = "Migration"
	Mutation     SubCategory = "Mutation"
	API          SubCategory = "API"
)

const (
	AppName      ExtraKey = "AppName"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	EventType    ExtraKey = "EventType"
	Seq          ExtraKey = "Seq"
	UserID       ExtraKey = "UserID"
	ErrorMessage ExtraKey = "ErrorMessage"
	Operation    ExtraKey = "Operation"
)

const (
	categoryKey    = "category"
	subCategoryKey = "sub_category"
)
