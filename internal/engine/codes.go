package engine

// Stable error codes carried in response bodies. Clients match on these,
// never on messages.
const (
	// Envelope errors (HTTP 400, never cached - retriable).
	CodeValidation       = "VALIDATION"
	CodeInstanceMismatch = "INSTANCE_MISMATCH"

	// Routing errors (HTTP 404).
	CodeInstanceNotFound = "INSTANCE_NOT_FOUND"

	// Authorization errors (HTTP 401/403, cached).
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeOwnershipViolation = "OWNERSHIP_VIOLATION"

	// Business rejections (HTTP 200 with accepted=false, cached).
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeDuplicateAPIKey        = "DUPLICATE_API_KEY"
	CodeInvalidConfigReference = "INVALID_CONFIG_REFERENCE"
	CodePlayerNotFound         = "PLAYER_NOT_FOUND"
	CodeGearNotFound           = "GEAR_NOT_FOUND"
	CodeGearAlreadyEquipped    = "GEAR_ALREADY_EQUIPPED"
	CodeGearNotEquipped        = "GEAR_NOT_EQUIPPED"
	CodeCharacterNotFound      = "CHARACTER_NOT_FOUND"
	CodeCharacterMismatch      = "CHARACTER_MISMATCH"
	CodeCharacterRequired      = "CHARACTER_REQUIRED"
	CodeSlotOccupied           = "SLOT_OCCUPIED"
	CodeInvalidSlot            = "INVALID_SLOT"
	CodePatternMismatch        = "PATTERN_MISMATCH"
	CodeRestrictionFailed      = "RESTRICTION_FAILED"
	CodeMaxLevelReached        = "MAX_LEVEL_REACHED"
	CodeInsufficientResources  = "INSUFFICIENT_RESOURCES"
	CodeInvalidCostResourceKey = "INVALID_COST_RESOURCE_KEY"
	CodeUnsupportedTxType      = "UNSUPPORTED_TX_TYPE"

	// Infrastructure errors (HTTP 500, cached).
	CodeConfigNotFound = "CONFIG_NOT_FOUND"
)

// Transaction type names.
const (
	TxCreateActor             = "CreateActor"
	TxCreatePlayer            = "CreatePlayer"
	TxCreateCharacter         = "CreateCharacter"
	TxCreateGear              = "CreateGear"
	TxEquipGear               = "EquipGear"
	TxUnequipGear             = "UnequipGear"
	TxLevelUpCharacter        = "LevelUpCharacter"
	TxLevelUpGear             = "LevelUpGear"
	TxGrantResources          = "GrantResources"
	TxGrantCharacterResources = "GrantCharacterResources"
)

// adminOnly lists transactions requiring the admin principal.
var adminOnly = map[string]bool{
	TxCreateActor:             true,
	TxGrantResources:          true,
	TxGrantCharacterResources: true,
}
