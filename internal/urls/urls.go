package urls

// BOSSA is the home of bossac, the SAM-BA flash tool used with the USB
// bootloader.
const BOSSA = "https://www.shumatech.com/web/products/bossa"

// ArmToolchain is where arm-none-eabi-gdb is distributed.
const ArmToolchain = "https://developer.arm.com/downloads/-/arm-gnu-toolchain-downloads"

// OpenOCD is the OpenOCD project page, covering probe and target configs.
const OpenOCD = "https://openocd.org/"

// FeatherM0Bootloader is Adafruit's Feather M0 guide, including how to enter
// the bootloader by double-tapping reset.
const FeatherM0Bootloader = "https://learn.adafruit.com/adafruit-feather-m0-basic-proto"
