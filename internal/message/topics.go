package message

// Default bus routing keys. Agents take these as configuration so deployments
// can override any of them through the environment.
const (
	TopicCarMetaData                 = "Init.User.CarMetadata"
	TopicUserState                   = "User.UserState"
	TopicCarState                    = "User.CarState"
	TopicUserPreference              = "User.UserPreference"
	TopicStationState                = "StationStateTopic"
	TopicPowerRequirement            = "PowerRequirementTopic"
	TopicPowerOutput                 = "PowerOutputTopic"
	TopicPowerDischargeCarToStation  = "PowerDischargeCarToStation"
	TopicPowerDischargeStationToGrid = "PowerDischargeStationToGrid"
	TopicTotalChargingCost           = "TotalChargingCost"
	TopicGridState                   = "GridState"
	TopicGridLoadStatus              = "GridLoadStatus"
	TopicUsedPowerValueToGrid        = "UsedPowerValueToGrid"
)
