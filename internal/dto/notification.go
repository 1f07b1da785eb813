package dto

// SubscribePushRequest registers one browser push endpoint.
type SubscribePushRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// UnsubscribePushRequest removes a registered endpoint.
type UnsubscribePushRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}
