package resources

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

func readMmap(file *os.File) (mmap.MMap, *[]byte, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() == 0 {
		empty := make([]byte, 0)
		return nil, &empty, nil
	}
	fileMmap, mmapErr := mmap.Map(file, mmap.RDONLY, 0)
	if mmapErr != nil {
		return nil, nil, mmapErr
	}
	mmapBytes := []byte(fileMmap)
	return fileMmap, &mmapBytes, nil
}
