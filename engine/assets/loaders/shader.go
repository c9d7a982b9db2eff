package loaders

import (
	"encoding/binary"
	"fmt"
	"os"
)

const spirvMagic uint32 = 0x07230203

// ShaderLoader reads compiled SPIR-V modules.
type ShaderLoader struct{}

// Load returns the module as 32-bit words, the form shader module creation expects.
func (sl *ShaderLoader) Load(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return bytesToBytecode(path, data)
}

func bytesToBytecode(name string, b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("shader '%s' is %d bytes, not a whole number of words", name, len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != spirvMagic {
		return nil, fmt.Errorf("shader '%s' is not SPIR-V (magic %#x)", name, byteCode[0])
	}
	return byteCode, nil
}
