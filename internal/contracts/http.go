package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ToggleInteractionRequest struct {
	PostID string `json:"post_id"`
	Apply  bool   `json:"apply"`
}

type CreateCommentRequest struct {
	PostID          string `json:"post_id"`
	Content         string `json:"content"`
	ParentCommentID string `json:"parent_comment_id,omitempty"`
	PostTitle       string `json:"post_title,omitempty"`
	PostAuthorID    string `json:"post_author_id,omitempty"`
}

type StatsUpdateRequest struct {
	PostID        string `json:"post_id"`
	OperationType string `json:"operation_type"`
	CountDelta    int64  `json:"count_delta"`
	StatsCategory string `json:"stats_category"`
}

type PublishAcceptedResponse struct {
	MessageID string `json:"message_id"`
	EventKind string `json:"event_kind"`
	Enqueued  bool   `json:"enqueued"`
}

type PostCountersResponse struct {
	PostID    string `json:"post_id"`
	Likes     int64  `json:"likes"`
	Bookmarks int64  `json:"bookmarks"`
	Comments  int64  `json:"comments"`
}

type FailureRecordResponse struct {
	MessageID       string `json:"message_id"`
	EventKind       string `json:"event_kind"`
	TargetPostID    string `json:"target_post_id"`
	FailureReason   string `json:"failure_reason"`
	FinalRetryCount int    `json:"final_retry_count"`
	FailedAt        string `json:"failed_at"`
	Envelope        any    `json:"envelope,omitempty"`
}

type FailureListResponse struct {
	Items []FailureRecordResponse `json:"items"`
}

type ReplayResponse struct {
	MessageID string `json:"message_id"`
	EventKind string `json:"event_kind"`
	Replayed  bool   `json:"replayed"`
}
