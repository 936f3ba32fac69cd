package domain

// Stable caller-visible codes. Each names the rule that rejected a request.
const (
	CodePrefix = "notificationevent:"

	CodeNoQueriedData   = CodePrefix + "noQueriedData"
	CodeNoTokenMatch    = CodePrefix + "noTokenMatch"
	CodeNoApplication   = CodePrefix + "noApplication"
	CodeNoMediumType    = CodePrefix + "noMediumType"
	CodeNoMedium        = CodePrefix + "noMedium"
	CodeNoTemplate      = CodePrefix + "noTemplate"
	CodeNoTemplateCtx   = CodePrefix + "noTemplateContext"
	CodeUnsupportedTmpl = CodePrefix + "unsupportedTemplateType"
	CodeNoID            = CodePrefix + "noId"
	CodeInvalidBody     = CodePrefix + "invalidBody"

	CodeNoSendTo      = CodePrefix + "noSendTo"
	CodeNoData        = CodePrefix + "noData"
	CodeNoSendToValid = CodePrefix + "noSendToValid"
	CodeNoSubject     = CodePrefix + "noDataSubject"
	CodeNoBody        = CodePrefix + "noDataBody"
	CodeNoBodyType    = CodePrefix + "noDataType"
	CodeNoBodyHTML    = CodePrefix + "noDataBodyHtml"

	CodeNoDeviceToken          = CodePrefix + "noSendToDeviceToken"
	CodeNoDataDeviceToken      = CodePrefix + "noDataToDeviceToken"
	CodeNoPushNotification     = CodePrefix + "noDataPushNotification"
	CodeNoNotificationSound    = CodePrefix + "noDataNotificationSound"
	CodeNoNotificationBody     = CodePrefix + "noDataNotificationBody"
	CodeNoNotificationTitle    = CodePrefix + "noDataNotificationTitle"
	CodeNoContentAvailable     = CodePrefix + "noDataNotificationContentAvailable"
	CodeNoNotificationPriority = CodePrefix + "noDataNotificationPriority"
	CodeNoPayload              = CodePrefix + "noDataNotificationPayload"
	CodeNoPayloadMessage       = CodePrefix + "noDataNotificationPayloadMessage"
	CodeNoPayloadTitle         = CodePrefix + "noDataNotificationPayloadTitle"

	CodeNoMessage     = CodePrefix + "noMessage"
	CodeNoCountryCode = CodePrefix + "noDataCountryCode"
	CodeNoCampaign    = CodePrefix + "noDataCampaign"

	CodeInvalidStatus     = CodePrefix + "invalidStatus"
	CodeInvalidTransition = CodePrefix + "invalidStatusTransition"
	CodeInvalidAttempts   = CodePrefix + "invalidAttempts"
	CodeInvalidDateRange  = CodePrefix + "invalidDateRange"
	CodeInvalidSortField  = CodePrefix + "invalidSortField"
	CodeInvalidPaging     = CodePrefix + "invalidPagination"

	CodeAttachmentStorage = CodePrefix + "attachmentStorage"
	CodeRegisterEvent     = CodePrefix + "registerNotificationEvent"
	CodeUpdateEvent       = CodePrefix + "updateNotificationEvent"
	CodeQueryEvents       = CodePrefix + "queryNotificationEvents"
	CodeLiveDispatch      = CodePrefix + "liveDispatchFailed"
	CodeRenderTemplate    = CodePrefix + "renderTemplate"

	CodeMessageInsert   = CodePrefix + "messageInsert"
	CodeMessageUpdate   = CodePrefix + "messageUpdate"
	CodeMessageResend   = CodePrefix + "messageResend"
	CodeMessageObtained = CodePrefix + "notificationEventsObtained"
)
