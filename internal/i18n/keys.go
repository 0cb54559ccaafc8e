// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAccessDenied           = "auth.access_denied"
	KeyOriginRejected         = "auth.origin_rejected"

	// Products
	KeyProductCreated       = "product.created"
	KeyProductUpdated       = "product.updated"
	KeyProductDeleted       = "product.deleted"
	KeyProductNotFound      = "product.not_found"
	KeyProductNotOwner      = "product.not_owner"
	KeyProductImageUploaded = "product.image_uploaded"

	// Orders and payments
	KeyOrderNotFound          = "order.not_found"
	KeyReceiptNotReady        = "order.receipt_not_ready"
	KeyPaymentVerified        = "payment.verified"
	KeyPaymentFailed          = "payment.failed"
	KeyPaymentFailedDefault   = "payment.failed_default"
	KeyPaymentGatewayError    = "payment.gateway_error"
	KeyPaymentInProgress      = "payment.in_progress"
	KeyPaymentReceiptFailed   = "payment.receipt_failed"
	KeyPaymentHandlerAccepted = "payment.handler_accepted"
	KeyPaymentInvalidRequest  = "payment.invalid_request"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// File Upload
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileTooLarge     = "file.too_large"

	// Rate limiting
	KeyRateLimited = "rate.limited"
)
