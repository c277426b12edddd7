package pointcloud

import (
	"io"

	"github.com/recolude/cloudmesh/fsutil"
)

// ConvertSH rewrites a Gaussian splat PLY as a plain RGB point cloud and
// returns the number of converted points. Any color the file already declares
// is replaced by the spherical harmonic DC color.
func ConvertSH(inPath, outPath string) (int, error) {
	cloud, err := Load(inPath)
	if err != nil {
		return 0, err
	}
	cloud, err = NormalizeColors(cloud.WithColors(nil), inPath)
	if err != nil {
		return 0, err
	}

	err = fsutil.WriteAtomic(outPath, func(w io.Writer) error {
		return SaveRGB(w, cloud)
	})
	if err != nil {
		return 0, err
	}
	return cloud.Len(), nil
}
