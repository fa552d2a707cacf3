package dto

type TwoFactorStatusResponse struct {
	Ok         bool   `json:"ok"`
	State      string `json:"state"` // "unconfigured" | "pending" | "enabled"
	BackupLeft int    `json:"backup_left,omitempty"`
}

type TwoFactorSetupResponse struct {
	Ok              bool   `json:"ok"`
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCode          string `json:"qr_code"` // base64 PNG
}

type TwoFactorVerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

type TwoFactorCodesResponse struct {
	Ok          bool     `json:"ok"`
	BackupCodes []string `json:"backupCodes"`
	// GrantToken is set when enabling also step-up verifies the session.
	// It travels in a cookie, never the JSON body.
	GrantToken string `json:"-"`
}

type TwoFactorOkResponse struct {
	Ok bool `json:"ok"`
}
