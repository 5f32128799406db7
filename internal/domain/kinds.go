package domain

// ActorKind - тип актора в мире
type ActorKind uint8

const (
	KindUnknown ActorKind = iota
	KindPlayer
	KindBot
	KindPowerup
	KindChest
)

var kindToString = map[ActorKind]string{
	KindPlayer:  "PLAYER",
	KindBot:     "BOT",
	KindPowerup: "POWERUP",
	KindChest:   "CHEST",
}

var stringToKind = map[string]ActorKind{
	"PLAYER":  KindPlayer,
	"BOT":     KindBot,
	"POWERUP": KindPowerup,
	"CHEST":   KindChest,
}

func (k ActorKind) String() string {
	if s, ok := kindToString[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseKind - обратное преобразование (клиентская сторона).
func ParseKind(s string) ActorKind {
	if k, ok := stringToKind[s]; ok {
		return k
	}
	return KindUnknown
}
