package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequiredPackagesSkipsStdlib(t *testing.T) {
	script := `import os
import shutil
from pathlib import Path
import json
`
	require.Empty(t, RequiredPackages(script))
}

func TestRequiredPackagesCorrectsCommonNames(t *testing.T) {
	script := `from PIL import Image
import cv2
import yaml
import pandas
`
	got := RequiredPackages(script)
	require.Equal(t, []string{"PyYAML", "Pillow", "opencv-python", "pandas"}, got)
}

func TestRequiredPackagesDeduplicates(t *testing.T) {
	script := `from PIL import Image
from PIL import ImageDraw
import openpyxl
import openpyxl
`
	got := RequiredPackages(script)
	require.Equal(t, []string{"Pillow", "openpyxl"}, got)
}

func TestRequiredPackagesHandlesIndentedImports(t *testing.T) {
	script := "def main():\n    import numpy\n"
	got := RequiredPackages(script)
	require.Equal(t, []string{"numpy"}, got)
}
