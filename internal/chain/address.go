package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKey - 32-байтный адрес аккаунта
type PublicKey [32]byte

// маркер, завершающий прообраз хэша при выводе адреса
var pdaMarker = []byte("ProgramDerivedAddress")

var programID = mustParseAddress(ProgramIDBase58)

// ProgramID возвращает адрес программы
func ProgramID() PublicKey {
	return programID
}

// ParseAddress разбирает base58-представление адреса
func ParseAddress(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("неверный адрес %q: %w", s, err)
	}
	if len(raw) != 32 {
		return PublicKey{}, fmt.Errorf("неверная длина адреса %q: %d байт", s, len(raw))
	}
	var pk PublicKey
	copy(pk[:], raw)
	return pk, nil
}

func mustParseAddress(s string) PublicKey {
	pk, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// EncodeGameID кодирует идентификатор игры как 8 байт little-endian.
// Кодировка обязана бит-в-бит совпадать с программой, иначе выведенный
// адрес не совпадет с её адресом.
func EncodeGameID(gameID int64) ([8]byte, error) {
	var buf [8]byte
	if gameID < 0 {
		return buf, fmt.Errorf("%w: %d", ErrInvalidIdentifier, gameID)
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(gameID))
	return buf, nil
}

// DecodeGameID - обратная операция к EncodeGameID
func DecodeGameID(buf [8]byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// DeriveGameAddress выводит адрес игрового аккаунта из идентификатора
// игры. Чистая функция: никакого состояния и сети.
func DeriveGameAddress(gameID int64) (PublicKey, uint8, error) {
	idBuf, err := EncodeGameID(gameID)
	if err != nil {
		return PublicKey{}, 0, err
	}
	return findProgramAddress([][]byte{GameSeed, idBuf[:]}, programID)
}

// DerivePlayerAddress выводит адрес аккаунта участника из
// идентификатора игры и публичного ключа участника
func DerivePlayerAddress(gameID int64, player PublicKey) (PublicKey, uint8, error) {
	idBuf, err := EncodeGameID(gameID)
	if err != nil {
		return PublicKey{}, 0, err
	}
	return findProgramAddress([][]byte{PlayerSeed, idBuf[:], player.Bytes()}, programID)
}

// findProgramAddress перебирает bump от 255 вниз и возвращает первый
// хэш, не лежащий на кривой ed25519
func findProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{uint8(bump)})
		h.Write(program.Bytes())
		h.Write(pdaMarker)

		var candidate PublicKey
		copy(candidate[:], h.Sum(nil))
		if !isOnCurve(candidate) {
			return candidate, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, fmt.Errorf("не найден валидный bump для seeds")
}

// isOnCurve проверяет, является ли 32-байтное значение точкой ed25519
func isOnCurve(pk PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}
